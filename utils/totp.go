package utils

import (
	"time"

	"github.com/pquerna/otp/totp"
)

// GenerateTOTPSecret returns the base32 secret and its otpauth:// URL.
func GenerateTOTPSecret(issuer, account string) (string, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
	})
	if err != nil {
		return "", "", err
	}

	return key.Secret(), key.URL(), nil
}

func VerifyTOTP(secret, code string) bool {
	return totp.Validate(code, secret)
}

// TOTPCode returns the code valid for secret at the given time.
func TOTPCode(secret string, at time.Time) (string, error) {
	return totp.GenerateCode(secret, at)
}
