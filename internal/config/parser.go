package config

import (
	"github.com/Kartikjoshi26/WeCall/internal/api"
)

type RawServerConfig struct {
	Port         *int `yaml:"port" json:"port"`
	PingInterval *int `yaml:"pingInterval" json:"pingInterval"`
}

func (r RawServerConfig) ToDomain() ServerConfig {
	var cfg ServerConfig
	if r.Port != nil {
		cfg.Port = *r.Port
	}
	if r.PingInterval != nil {
		cfg.PingInterval = *r.PingInterval
	}
	return cfg
}

type RawSecurityConfig struct {
	JWTSecret       *string `yaml:"jwtSecret" json:"jwtSecret"`
	AdminCredential *string `yaml:"adminCredential" json:"adminCredential"`
	TLSCrtFile      *string `yaml:"tlsCrtFile" json:"tlsCrtFile"`
	TLSKeyFile      *string `yaml:"tlsKeyFile" json:"tlsKeyFile"`
}

func (r RawSecurityConfig) ToDomain() SecurityConfig {
	var cfg SecurityConfig
	if r.JWTSecret != nil {
		cfg.JWTSecret = *r.JWTSecret
	}
	cfg.AdminCredential = r.AdminCredential
	cfg.TLSCrtFile = r.TLSCrtFile
	cfg.TLSKeyFile = r.TLSKeyFile
	return cfg
}

type RawWebRTCConfig struct {
	PeerConnectionConfig *api.PeerConnectionConfig `yaml:"peerConnectionConfig" json:"peerConnectionConfig"`
}

func (r RawWebRTCConfig) ToDomain() WebRTCConfig {
	var cfg WebRTCConfig
	if r.PeerConnectionConfig != nil {
		cfg.PeerConnectionConfig = *r.PeerConnectionConfig
	}
	return cfg
}

type RawCallConfig struct {
	InviteTimeoutMsec *int `yaml:"inviteTimeoutMsec" json:"inviteTimeoutMsec"`
}

func (r RawCallConfig) ToDomain() CallConfig {
	var cfg CallConfig
	if r.InviteTimeoutMsec != nil {
		cfg.InviteTimeoutMsec = *r.InviteTimeoutMsec
	}
	return cfg
}
