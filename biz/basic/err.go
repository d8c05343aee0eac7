package basic

import (
	"errors"
	"fmt"
)

type ErrCode int

const (
	ParamsErrCode              ErrCode = 1
	InsufficientBalanceErrCode ErrCode = 2
	NotFoundErrCode            ErrCode = 3
	DuplicateTradeErrCode      ErrCode = 4
	StateMutationErrCode       ErrCode = 5
	DBFailedErrCode            ErrCode = 6
)

var (
	ParamsErr              = New(ParamsErrCode, "[profitshare] params error")
	InsufficientBalanceErr = New(InsufficientBalanceErrCode, "[profitshare] insufficient balance")
	NotFoundErr            = New(NotFoundErrCode, "[profitshare] not found")
	DuplicateTradeErr      = New(DuplicateTradeErrCode, "[profitshare] trade already processed")
	StateMutationErr       = New(StateMutationErrCode, "[profitshare] state mutation")
	DBFailedErr            = New(DBFailedErrCode, "[profitshare] db failed")
)

type LedgerErr struct {
	Code ErrCode
	Msg  string
}

func (e *LedgerErr) Error() string {
	return fmt.Sprintf("code: %d, msg: %s", e.Code, e.Msg)
}

func New(code ErrCode, msg string) error {
	return &LedgerErr{
		Code: code,
		Msg:  msg,
	}
}

func NewWithErr(code ErrCode, err error) error {
	return &LedgerErr{
		Code: code,
		Msg:  err.Error(),
	}
}

func NewDBFailed(err error) error {
	return New(DBFailedErrCode, err.Error())
}

func NewParamsError(err error) error {
	return New(ParamsErrCode, err.Error())
}

func Is(err, target error) bool {
	if errors.Is(err, target) {
		return true
	}
	var e *LedgerErr
	if errors.As(err, &e) {
		if e.Code == target.(*LedgerErr).Code {
			return true
		}
	}
	return false
}
