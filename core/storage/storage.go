// Package storage persists the JSON documents served by the CRUD handler.
// Documents are grouped by entity name and addressed by positive integer ids.
package storage

import (
	"errors"
	"strconv"
	"strings"
)

var (
	ErrNotFound      = errors.New("entity not found")
	ErrInvalidID     = errors.New("invalid entity id")
	ErrInvalidEntity = errors.New("invalid entity name")
)

// Store is implemented by every backend. Ids are assigned as one more than
// the largest id currently stored for the entity.
type Store interface {
	Create(entity string, doc []byte) (int, error)
	Get(entity string, id int) ([]byte, error)
	Put(entity string, id int, doc []byte) error
	Delete(entity string, id int) error
	List(entity string) ([]int, error)
}

// ParseID converts a URL segment to an id
func ParseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}

// ValidEntity reports whether name can be used as an entity. Names become
// directory names and must not escape the store root.
func ValidEntity(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00")
}

func checkKey(entity string, id int) error {
	if !ValidEntity(entity) {
		return ErrInvalidEntity
	}
	if id <= 0 {
		return ErrInvalidID
	}
	return nil
}
