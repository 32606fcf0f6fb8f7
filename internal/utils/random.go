package utils

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

func SecureRandomInt(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	return int(n.Int64())
}

// GenerateRideOTP returns a code drawn uniformly from [RideOTPMin, RideOTPMax].
func GenerateRideOTP() string {
	return strconv.Itoa(RideOTPMin + SecureRandomInt(RideOTPMax-RideOTPMin+1))
}
