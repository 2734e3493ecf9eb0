//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

const shaderDir = "assets/shaders"

// glslc stages compiled into SPIR-V next to their sources.
var shaderStages = []string{"*.rgen", "*.rmiss", "*.rchit"}

type Build mg.Namespace

// Shaders compiles every ray tracing stage under assets/shaders into .spv.
func (Build) Shaders() error {
	return buildShaders()
}

// Engine builds the vengine binary.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", "bin/vengine", "."), withEnv(cgoEnv...), withStream())
	return err
}

func buildShaders() error {
	var sources []string
	for _, pattern := range shaderStages {
		matches, err := filepath.Glob(filepath.Join(shaderDir, pattern))
		if err != nil {
			return err
		}
		sources = append(sources, matches...)
	}
	if len(sources) == 0 {
		return fmt.Errorf("no shader sources found in %s", shaderDir)
	}

	glslc, err := vulkanTool("glslc")
	if err != nil {
		return err
	}
	for _, src := range sources {
		out := src + ".spv"
		if upToDate(src, out) {
			continue
		}
		args := []string{"--target-env=vulkan1.2", "-I", shaderDir, src, "-o", out}
		if _, err := executeCmd(glslc, withArgs(args...), withStream()); err != nil {
			return err
		}
	}
	return nil
}

// upToDate reports whether out exists and is newer than src and every
// include next to it.
func upToDate(src, out string) bool {
	outInfo, err := os.Stat(out)
	if err != nil {
		return false
	}
	deps, _ := filepath.Glob(filepath.Join(filepath.Dir(src), "*.glsl"))
	for _, dep := range append(deps, src) {
		info, err := os.Stat(dep)
		if err != nil || info.ModTime().After(outInfo.ModTime()) {
			return false
		}
	}
	return true
}
