package models

import (
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a device or user record doesn't exist
var ErrNotFound = errors.New("record not found")

type BaseModel struct {
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}
