package config

import "time"

type LifecycleConfig struct {
	CommitAttempts int           `yaml:"commit_attempts"`
	OTPMaxAttempts int           `yaml:"otp_max_attempts"`
	OTPWindow      time.Duration `yaml:"otp_window"`
}

type EmergencyConfig struct {
	HotlineNumbers []string `yaml:"hotline_numbers"`
}

func loadLifecycleConfig() *LifecycleConfig {
	return &LifecycleConfig{
		CommitAttempts: getEnvAsInt("LIFECYCLE_COMMIT_ATTEMPTS", 3),
		OTPMaxAttempts: getEnvAsInt("LIFECYCLE_OTP_MAX_ATTEMPTS", 5),
		OTPWindow:      getEnvAsDuration("LIFECYCLE_OTP_WINDOW", 10*time.Minute),
	}
}

func loadEmergencyConfig() *EmergencyConfig {
	return &EmergencyConfig{
		HotlineNumbers: getEnvAsSlice("EMERGENCY_HOTLINE_NUMBERS", nil),
	}
}
