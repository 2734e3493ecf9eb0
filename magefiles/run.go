//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Engine compiles the shaders and renders the testbed scene.
func (Run) Engine() error {
	if err := buildShaders(); err != nil {
		return err
	}
	fmt.Println("Run engine...")
	args := []string{"run", ".", "run"}
	if mg.Verbose() {
		args = []string{"run", ".", "-vv", "run", "--validation"}
	}
	if _, err := executeCmd("go", withArgs(args...), withEnv(cgoEnv...), withStream()); err != nil {
		return err
	}
	return nil
}

// Devices lists the Vulkan devices and their ray tracing support.
func (Run) Devices() error {
	_, err := executeCmd("go", withArgs("run", ".", "devices"), withEnv(cgoEnv...), withStream())
	return err
}

// Test runs the unit tests.
func (Run) Test() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withEnv(cgoEnv...), withStream())
	return err
}
