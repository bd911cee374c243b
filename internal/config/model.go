package config

import (
	"github.com/Kartikjoshi26/WeCall/internal/api"
)

type AppConfig struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	Security SecurityConfig `json:"security" yaml:"security"`
	WebRTC   WebRTCConfig   `json:"webrtc" yaml:"webrtc"`
	Call     CallConfig     `json:"call" yaml:"call"`
}

type ServerConfig struct {
	Port         int `json:"port" yaml:"port"`
	PingInterval int `json:"pingInterval" yaml:"pingInterval"` // seconds
}

type SecurityConfig struct {
	// JWTSecret is shared with the account service that mints identity
	// tokens.
	JWTSecret       string  `json:"jwtSecret" yaml:"jwtSecret"`
	AdminCredential *string `json:"adminCredential" yaml:"adminCredential"`
	TLSCrtFile      *string `json:"tlsCrtFile" yaml:"tlsCrtFile"`
	TLSKeyFile      *string `json:"tlsKeyFile" yaml:"tlsKeyFile"`
}

type WebRTCConfig struct {
	PeerConnectionConfig api.PeerConnectionConfig `json:"peerConnectionConfig" yaml:"peerConnectionConfig"`
}

type CallConfig struct {
	// InviteTimeoutMsec bounds both the caller's wait for acceptance and the
	// callee's wait for the offer.
	InviteTimeoutMsec int `json:"inviteTimeoutMsec" yaml:"inviteTimeoutMsec"`
}

func DefaultAppConfig() AppConfig {
	return AppConfig{
		Server: ServerConfig{
			Port:         3000,
			PingInterval: 30,
		},
		Security: SecurityConfig{
			JWTSecret:       "wecall-dev-secret",
			AdminCredential: nil,
			TLSCrtFile:      nil,
			TLSKeyFile:      nil,
		},
		WebRTC: WebRTCConfig{
			PeerConnectionConfig: api.DefaultPeerConnectionConfig(),
		},
		Call: CallConfig{
			InviteTimeoutMsec: 25000,
		},
	}
}
