package api

import "github.com/pion/webrtc/v4"

// ICEServer mirrors the RTCIceServer dictionary handed to clients so they
// build their peer connection from server configuration instead of a
// hardcoded STUN list.
type ICEServer struct {
	URLs       []string `json:"urls" yaml:"urls"`
	Username   string   `json:"username,omitempty" yaml:"username"`
	Credential string   `json:"credential,omitempty" yaml:"credential"`
}

type PeerConnectionConfig struct {
	ICEServers []ICEServer `json:"iceServers" yaml:"iceServers"`
}

// WebrtcConfiguration converts the wire form into a pion configuration.
func (c PeerConnectionConfig) WebrtcConfiguration() webrtc.Configuration {
	servers := make([]webrtc.ICEServer, len(c.ICEServers))
	for i, s := range c.ICEServers {
		servers[i] = webrtc.ICEServer{URLs: s.URLs}
		if s.Username != "" {
			servers[i].Username = s.Username
			servers[i].Credential = s.Credential
		}
	}
	return webrtc.Configuration{ICEServers: servers}
}

func DefaultPeerConnectionConfig() PeerConnectionConfig {
	return PeerConnectionConfig{
		ICEServers: []ICEServer{
			{
				URLs: []string{
					"stun:stun.l.google.com:19302",
					"stun:global.stun.twilio.com:3478",
				},
			},
		},
	}
}
