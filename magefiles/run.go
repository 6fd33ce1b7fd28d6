//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Prints the scene catalog.
func (Run) List() error {
	mg.Deps(Build.Binary)
	if _, err := executeCmd(binaryPath, withArgs("list"), withStream()); err != nil {
		return err
	}
	return nil
}

// Loads a scene from the configuration in mapviewer.toml and draws 120 frames.
func (Run) Load(sceneID string) error {
	mg.Deps(Build.Binary)
	fmt.Printf("Loading %s...\n", sceneID)
	if _, err := executeCmd(binaryPath, withArgs("load", sceneID, "--config", "mapviewer.toml", "--frames", "120"), withStream()); err != nil {
		return err
	}
	return nil
}
