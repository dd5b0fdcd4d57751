//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs the full test suite with the race detector.
func (Test) All() error {
	fmt.Println("Running tests...")
	if _, err := executeCmd("go", withArgs("test", "-race", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs only the command processor tests.
func (Test) Processor() error {
	if _, err := executeCmd("go", withArgs("test", "-race", "./engine/renderer/vulkan/..."), withStream()); err != nil {
		return err
	}
	return nil
}
