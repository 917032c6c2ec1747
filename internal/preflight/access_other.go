//go:build !unix

package preflight

import "os"

func accessReadWrite(path string) error {
	f, err := os.CreateTemp(path, ".vidsub-preflight-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
