//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// ErrEmptyShaderSource is returned when the embedded WGSL source is
// missing, which indicates a broken build rather than a runtime
// condition.
var ErrEmptyShaderSource = errors.New("gpu: shader source is empty")

// compileShader compiles WGSL source to SPIR-V via naga and creates the
// HAL shader module. Going through SPIR-V keeps shader validation in
// one place: a malformed shader fails here, at pipeline setup, not at
// first draw.
func compileShader(device hal.Device, label, wgslSource string) (hal.ShaderModule, error) {
	if wgslSource == "" {
		return nil, ErrEmptyShaderSource
	}

	spirvBytes, err := naga.Compile(wgslSource)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", label, err)
	}

	// SPIR-V is little-endian 32-bit words.
	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}

	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: spirvCode},
	})
	if err != nil {
		return nil, fmt.Errorf("create shader module %s: %w", label, err)
	}
	return module, nil
}
