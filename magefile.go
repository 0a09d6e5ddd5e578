//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Default target when mage is run without arguments
var Default = Build

// Build compiles the ordkort binary
func Build() error {
	return sh.RunV("go", "build", "-o", "ordkort", "./cmd/ordkort")
}

// Install installs ordkort into GOPATH/bin
func Install() error {
	return sh.RunV("go", "install", "./cmd/ordkort")
}

// Test runs all tests
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Vet runs go vet over the whole module
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// All vets, tests and builds
func All() {
	mg.SerialDeps(Vet, Test, Build)
}

// Clean removes the built binary
func Clean() error {
	return sh.Rm("ordkort")
}
