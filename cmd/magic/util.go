package main

import (
	"github.com/mitchellh/go-homedir"
)

func homeDir() (string, error) {
	return homedir.Dir()
}
