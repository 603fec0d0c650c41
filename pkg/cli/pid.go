//go:build !windows

package cli

import (
	"fmt"
	"os"
	"syscall"

	"github.com/rget-dev/rget/pkg/logging"
)

type PIDFile struct {
	file *os.File
	fd   int
}

func NewPIDFile(path string) (*PIDFile, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	return &PIDFile{file: file, fd: int(file.Fd())}, nil
}

func (p *PIDFile) Acquire() error {
	logger := logging.GetLogger()
	err := syscall.Flock(p.fd, syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		logger.Warn().
			Err(err).
			Str("message", "another rget process may be running against this PID file").
			Msg("Waiting on Lock")
		if err = syscall.Flock(p.fd, syscall.LOCK_EX); err != nil {
			return err
		}
	}
	if err := p.writePID(); err != nil {
		return err
	}
	return p.file.Sync()
}

func (p *PIDFile) Release() error {
	if err := syscall.Flock(p.fd, syscall.LOCK_UN); err != nil {
		return err
	}
	if err := p.file.Close(); err != nil {
		return err
	}
	return os.Remove(p.file.Name())
}

func (p *PIDFile) writePID() error {
	_, err := p.file.WriteString(fmt.Sprintf("%d", os.Getpid()))
	return err
}
