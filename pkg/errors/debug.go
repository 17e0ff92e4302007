package errors

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	RecordNotFound bool `json:"record_not_found,omitempty"`
	DuplicatedKey  bool `json:"duplicated_key,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage: err.Error(),
	}

	if te := As(err); te != nil {
		d.Code = te.Code()
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	d.RecordNotFound = errors.Is(err, gorm.ErrRecordNotFound)
	d.DuplicatedKey = errors.Is(err, gorm.ErrDuplicatedKey)

	return d
}
