//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

const binaryPath = "bin/mapviewer"

type Build mg.Namespace

// Tidies the module and builds the mapviewer binary into bin/.
func (Build) Binary() error {
	if err := goTidy(); err != nil {
		return err
	}
	if _, err := executeCmd("go", withArgs("build", "-o", binaryPath, "."), withStream()); err != nil {
		return err
	}
	return nil
}
