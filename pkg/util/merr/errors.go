// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package merr

import (
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

const (
	CanceledCode int32 = 10000
	TimeoutCode  int32 = 10001
)

type ErrorType int32

const (
	SystemError ErrorType = 0
	InputError  ErrorType = 1
)

var ErrorTypeName = map[ErrorType]string{
	SystemError: "system_error",
	InputError:  "input_error",
}

func (err ErrorType) String() string {
	return ErrorTypeName[err]
}

// 叶子错误统一在此定义。
// 新增错误前请先确认下列错误是否已经可以覆盖。
// 命名规则：Err + 错误名
var (
	// 输入相关
	ErrMalformedInput     = newStackError("malformed json input", 4000, false, WithErrorType(InputError))
	ErrUnknownProperty    = newStackError("unknown property", 4001, false, WithErrorType(InputError))
	ErrTypeMismatch       = newStackError("type mismatch", 4002, false, WithErrorType(InputError))
	ErrNullNotAllowed     = newStackError("null not allowed", 4003, false, WithErrorType(InputError))
	ErrIncompleteDocument = newStackError("incomplete json document", 4005, false, WithErrorType(InputError))
	ErrMaxDepthExceeded   = newStackError("max nesting depth exceeded", 4006, false, WithErrorType(InputError))

	// 类型描述相关
	ErrUnsupportedType = newStackError("unsupported type", 4004, false)

	// 资源相关
	ErrBufferLimitExceeded = newStackError("buffer limit exceeded", 4007, false)

	// 参数相关
	ErrParameterInvalid = newStackError("invalid parameter", 1100, false)

	// IO 相关
	ErrIoFailed      = newStackError("IO failed", 1001, false)
	ErrIoUnexpectEOF = newStackError("unexpected EOF", 1002, true)

	// 不要导出该错误，仅用于把未知错误转换为 stackError
	errUnexpected = newStackError("unexpected error", (1<<16)-1, false)
)

type errorOption func(*stackError)

func WithDetail(detail string) errorOption {
	return func(err *stackError) {
		err.detail = detail
	}
}

func WithErrorType(etype ErrorType) errorOption {
	return func(err *stackError) {
		err.errType = etype
	}
}

type stackError struct {
	msg       string
	detail    string
	retriable bool
	errCode   int32
	errType   ErrorType
}

func newStackError(msg string, code int32, retriable bool, options ...errorOption) stackError {
	err := stackError{
		msg:       msg,
		detail:    msg,
		retriable: retriable,
		errCode:   code,
	}

	for _, option := range options {
		option(&err)
	}
	return err
}

func (e stackError) code() int32 {
	return e.errCode
}

func (e stackError) Error() string {
	return e.msg
}

func (e stackError) Detail() string {
	return e.detail
}

// Is 按错误码比较，包装过的同码错误也视为相等。
func (e stackError) Is(err error) bool {
	cause := errors.Cause(err)
	if cause, ok := cause.(stackError); ok {
		return e.errCode == cause.errCode
	}
	return false
}

type multiErrors struct {
	errs []error
}

func (e multiErrors) Unwrap() error {
	if len(e.errs) <= 1 {
		return nil
	}
	// errors.Cause 取最后一个错误作为根因
	if len(e.errs) == 2 {
		return e.errs[1]
	}

	return multiErrors{
		errs: e.errs[1:],
	}
}

func (e multiErrors) Error() string {
	final := e.errs[0]
	for i := 1; i < len(e.errs); i++ {
		final = errors.Wrap(e.errs[i], final.Error())
	}
	return final.Error()
}

func (e multiErrors) Is(err error) bool {
	for _, item := range e.errs {
		if errors.Is(item, err) {
			return true
		}
	}
	return false
}

// Combine 合并多个错误，nil 会被忽略；全部为 nil 时返回 nil。
func Combine(errs ...error) error {
	errs = lo.Filter(errs, func(err error, _ int) bool { return err != nil })
	if len(errs) == 0 {
		return nil
	}
	return multiErrors{
		errs,
	}
}
