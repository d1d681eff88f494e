package common

import "time"

const (
	// GlobalRefCode is the site-wide referral code. Its allowance switches
	// anonymous signup on and off; its owner, when a valid account id, is
	// offered as the default referrer.
	GlobalRefCode = "00000000"

	// DeactivatedRefOwner marks a referral code that can no longer be used.
	DeactivatedRefOwner = "-"

	// NewRefAllowance is the invite allowance minted for every new wallet.
	NewRefAllowance = 3

	// AccountReceiptWindow bounds the age of CREATE_CONF and RESET_CONF receipts.
	AccountReceiptWindow = 2 * time.Hour

	// UnlockReceiptWindow bounds the age of UNLOCK request receipts.
	UnlockReceiptWindow = 10 * time.Minute

	// ForwardReceiptWindow bounds the age of FORWARD receipts.
	ForwardReceiptWindow = 10 * time.Minute

	// MaxReceiptSkew is how far in the future a receipt's createdAt may lie.
	MaxReceiptSkew = time.Minute

	// MaxForwardGas is the gas ceiling for a forwarded proxy call.
	MaxForwardGas = 200000

	// ForwardGasMultiplier pads estimated gas against drift before execution.
	ForwardGasMultiplier = 1.2
)
