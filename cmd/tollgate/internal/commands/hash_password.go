package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/layer-3/tollgate/adapters/credentials"
)

type HashPasswordCmd struct {
	Cost     int    `help:"bcrypt cost" default:"12"`
	Password string `arg:"" optional:"" help:"password to hash, read from stdin when omitted"`
}

func (c *HashPasswordCmd) Run(_ context.Context, _ *Globals) error {
	password := c.Password
	if password == "" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return errors.New("password must not be empty")
	}

	hash, err := credentials.HashPassword(password, c.Cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	fmt.Println(hash)
	return nil
}
