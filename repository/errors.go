/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/code19m/errx"
)

const (
	CodeNotFound      = "OBJECT_DOES_NOT_EXIST"
	CodeInvalidQuery  = "INVALID_QUERY"
	CodeAlreadyExists = "OBJECT_ALREADY_EXISTS"
)

// IsNotFound reports whether err means the requested row does not exist. It
// also recognises a bare sql.ErrNoRows.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || hasCode(err, CodeNotFound)
}

// IsInvalidQuery reports whether err was raised for an unknown field, a bad
// value or an unsupported payload, before any SQL was issued.
func IsInvalidQuery(err error) bool {
	return hasCode(err, CodeInvalidQuery)
}

// IsAlreadyExists reports whether err is a unique key conflict.
func IsAlreadyExists(err error) bool {
	return hasCode(err, CodeAlreadyExists)
}

func hasCode(err error, code string) bool {
	var e errx.ErrorX
	return errors.As(err, &e) && e.Code() == code
}

func newNotFound(entity string, details errx.D) error {
	return errx.New(
		fmt.Sprintf("%s does not exist", entity),
		errx.WithCode(CodeNotFound),
		errx.WithType(errx.T_NotFound),
		errx.WithDetails(details),
	)
}

func newInvalidQuery(entity string, format string, args ...any) error {
	return errx.New(
		fmt.Sprintf(format, args...),
		errx.WithCode(CodeInvalidQuery),
		errx.WithType(errx.T_Validation),
		errx.WithDetails(errx.D{"entity": entity}),
	)
}

func newAlreadyExists(entity string, details errx.D) error {
	return errx.New(
		fmt.Sprintf("%s already exists", entity),
		errx.WithCode(CodeAlreadyExists),
		errx.WithType(errx.T_Conflict),
		errx.WithDetails(details),
	)
}
