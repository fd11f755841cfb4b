package models

import (
	"strings"

	"github.com/google/uuid"
)

// TempIDPrefix marks locally minted identifiers that the server has not
// confirmed yet. Temp ids never leave the device as real identifiers.
const TempIDPrefix = "tmp_"

// NewTempID mints a locally unique temporary identifier.
func NewTempID() string {
	return TempIDPrefix + uuid.NewString()
}

// IsTempID reports whether the identifier is locally minted.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}
