package flow

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/m3rciful/walletbot/internal/session"
)

var (
	errMalformed = errors.New("flow: malformed input")
	errAmount    = errors.New("flow: invalid amount")
)

type emailInput struct {
	Email string `validate:"required,email,max=254"`
}

type otpInput struct {
	Code string `validate:"required,len=6,number"`
}

type transferInput struct {
	Amount    string `validate:"required,numeric"`
	Recipient string `validate:"required,printascii,max=128"`
	Network   string `validate:"omitempty,alphanum,max=32"`
}

type emailTransferInput struct {
	Amount    string `validate:"required,numeric"`
	Recipient string `validate:"required,email,max=254"`
}

// parseTransfer splits "<amount> <destination> [network]" according to the
// transfer kind and validates every token.
func parseTransfer(v *validator.Validate, kind session.TransferKind, text string) (transferInput, error) {
	fields := strings.Fields(text)
	var in transferInput
	switch kind {
	case session.KindWithdraw:
		if len(fields) != 2 && len(fields) != 3 {
			return in, errMalformed
		}
		in = transferInput{Amount: fields[0], Recipient: fields[1]}
		if len(fields) == 3 {
			in.Network = fields[2]
		}
		if err := v.Struct(in); err != nil {
			return in, errMalformed
		}
	case session.KindEmail:
		if len(fields) != 2 {
			return in, errMalformed
		}
		e := emailTransferInput{Amount: fields[0], Recipient: fields[1]}
		if err := v.Struct(e); err != nil {
			return in, errMalformed
		}
		in = transferInput{Amount: e.Amount, Recipient: e.Recipient}
	default:
		if len(fields) != 2 {
			return in, errMalformed
		}
		in = transferInput{Amount: fields[0], Recipient: fields[1]}
		if err := v.Struct(in); err != nil {
			return in, errMalformed
		}
	}
	if amount, err := strconv.ParseFloat(in.Amount, 64); err != nil || amount <= 0 {
		return in, errAmount
	}
	return in, nil
}

func isCancel(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "cancel", "/cancel":
		return true
	}
	return false
}
