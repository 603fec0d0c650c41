//go:build windows

package cli

import (
	"fmt"
	"os"
)

// PIDFile on Windows records the PID without flock semantics.
type PIDFile struct {
	file *os.File
}

func NewPIDFile(path string) (*PIDFile, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	return &PIDFile{file: file}, nil
}

func (p *PIDFile) Acquire() error {
	if _, err := p.file.WriteString(fmt.Sprintf("%d", os.Getpid())); err != nil {
		return err
	}
	return p.file.Sync()
}

func (p *PIDFile) Release() error {
	if err := p.file.Close(); err != nil {
		return err
	}
	return os.Remove(p.file.Name())
}
