package utils

import (
	"strings"
	"testing"

	"github.com/GriffinCanCode/podshell/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestValidateNamespace(t *testing.T) {
	tests := []struct {
		name      string
		namespace string
		wantErr   bool
	}{
		{"simple", "default", false},
		{"with dash", "kube-system", false},
		{"empty", "", true},
		{"uppercase", "Default", true},
		{"slash", "a/b", true},
		{"dot", "a.b", true},
		{"too long", strings.Repeat("a", 64), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNamespace(tt.namespace)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrInvalidRequest)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePodName(t *testing.T) {
	assert.NoError(t, ValidatePodName("web-7c9f8b5d4-x2k8q"))
	assert.NoError(t, ValidatePodName("etcd-node.example"))
	assert.Error(t, ValidatePodName(""))
	assert.Error(t, ValidatePodName("pod/a"))
	assert.Error(t, ValidatePodName("-leading"))
}

func TestValidateContextName(t *testing.T) {
	assert.NoError(t, ValidateContextName("arn:aws:eks:eu-west-1:123456789012:cluster/prod"))
	assert.Error(t, ValidateContextName(""))
	assert.Error(t, ValidateContextName(strings.Repeat("c", MaxContextName+1)))
}

func TestValidateShell(t *testing.T) {
	assert.NoError(t, ValidateShell("/bin/bash"))
	assert.Error(t, ValidateShell(""))
	assert.Error(t, ValidateShell("/bin/sh\nrm -rf /"))
	assert.Error(t, ValidateShell(strings.Repeat("s", MaxShellLength+1)))
}

func TestValidateGeometry(t *testing.T) {
	assert.NoError(t, ValidateGeometry(types.Geometry{}))
	assert.NoError(t, ValidateGeometry(types.Geometry{Cols: 80, Rows: 30}))
	assert.Error(t, ValidateGeometry(types.Geometry{Cols: 80}))
	assert.Error(t, ValidateGeometry(types.Geometry{Cols: MaxDimension + 1, Rows: 10}))
	assert.Error(t, ValidateGeometry(types.Geometry{Cols: -1, Rows: 10}))
}

func TestValidateInput(t *testing.T) {
	assert.NoError(t, ValidateInput([]byte("ls\n")))
	assert.Error(t, ValidateInput(make([]byte, MaxInputSize+1)))
}
