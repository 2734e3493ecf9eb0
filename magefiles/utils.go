//go:build mage

package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
)

type cmdOptions struct {
	args   []string
	env    []string
	stream bool
}

type cmdOption func(*cmdOptions)

func withArgs(args ...string) cmdOption {
	return func(o *cmdOptions) {
		o.args = args
	}
}

// withEnv adds KEY=VALUE pairs on top of the current environment.
func withEnv(env ...string) cmdOption {
	return func(o *cmdOptions) {
		o.env = append(o.env, env...)
	}
}

func withStream() cmdOption {
	return func(o *cmdOptions) {
		o.stream = true
	}
}

// cgoEnv is required by anything that compiles the vulkan backend, which
// calls the NV ray tracing entry points through cgo.
var cgoEnv = []string{"CGO_ENABLED=1"}

// vulkanTool finds a Vulkan SDK binary, preferring $VULKAN_SDK/bin over PATH.
func vulkanTool(name string) (string, error) {
	if sdk := os.Getenv("VULKAN_SDK"); sdk != "" {
		candidate := filepath.Join(sdk, "bin", name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not found in $VULKAN_SDK/bin or PATH, install the Vulkan SDK: %w", name, err)
	}
	return path, nil
}

func executeCmd(command string, options ...cmdOption) (string, error) {
	opts := &cmdOptions{}
	for _, o := range options {
		o(opts)
	}

	env := ""
	if len(opts.env) > 0 {
		env = strings.Join(opts.env, " ") + " "
	}
	fmt.Printf("[vengine] %s%s %s\n", env, filepath.Base(command), strings.Join(opts.args, " "))
	cmd := exec.Command(command, opts.args...)
	if len(opts.env) > 0 {
		cmd.Env = append(os.Environ(), opts.env...)
	}

	streamOutput := mg.Verbose() || opts.stream

	var b bytes.Buffer
	if streamOutput {
		cmd.Stdout = io.MultiWriter(&b, os.Stdout)
		cmd.Stderr = io.MultiWriter(&b, os.Stderr)
	} else {
		cmd.Stdout = &b
		cmd.Stderr = &b
	}
	err := cmd.Run()
	if err != nil {
		if !streamOutput {
			fmt.Println("[vengine] failed command output:")
			fmt.Println(b.String())
		}
		return "", fmt.Errorf("error executing %s: %w", filepath.Base(command), err)
	}
	return b.String(), nil
}
