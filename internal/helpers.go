package internal

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// EnsureEmptyDir creates path if needed and empties it if it already has
// contents. Unless silent is set, a non-empty directory is only cleared
// after explicit confirmation on stdin.
func EnsureEmptyDir(path string, silent bool) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return err
	}

	directory, err := os.Open(path)
	if err != nil {
		return err
	}
	defer directory.Close()

	_, err = directory.Readdirnames(1)
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}

	if !silent {
		fmt.Print("Output directory is not empty. Continuing removes all of its files. Proceed? [Y/n] ")
		var response string
		fmt.Scan(&response)
		if strings.ToUpper(response) != "Y" {
			return fmt.Errorf("explicit agreement was not given")
		}
	}

	if err := os.RemoveAll(path); err != nil {
		return err
	}
	return os.MkdirAll(path, 0o755)
}
