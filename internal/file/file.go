package file

import (
	"encoding/gob"
	"io/ioutil"
	"os"
	"path/filepath"
)

// Serialize gob encodes data into path, replacing it atomically
func Serialize(path string, data interface{}) error {
	tf, err := ioutil.TempFile(filepath.Dir(path), "."+filepath.Base(path))
	if err != nil {
		return err
	}

	e := gob.NewEncoder(tf)
	err = e.Encode(data)
	if err != nil {
		_ = tf.Close()
		_ = os.Remove(tf.Name())
		return err
	}

	err = tf.Sync()
	if err != nil {
		_ = tf.Close()
		_ = os.Remove(tf.Name())
		return err
	}
	_ = tf.Close()

	err = os.Rename(tf.Name(), path)
	if err != nil {
		_ = os.Remove(tf.Name())
		return err
	}

	return nil
}

func Unserialize(path string, data interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	d := gob.NewDecoder(f)
	err = d.Decode(data)
	if err != nil {
		return err
	}

	return nil
}

// IsTemp reports whether name is an unfinished Serialize temp file
func IsTemp(name string) bool {
	return len(name) > 0 && name[0] == '.'
}

func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
