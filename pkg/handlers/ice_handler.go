// Package handlers holds HTTP handlers shared outside a single service.
package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// IceHandler vends short-lived STUN/TURN credentials from Twilio's traversal
// service. Peers need these to complete the negotiation the relay forwards;
// the media itself never touches this server.
type IceHandler struct {
	twilioClient *twilio.RestClient
}

// NewIceHandler creates the handler from account credentials.
func NewIceHandler(accountSid, authToken string) *IceHandler {
	return &IceHandler{
		twilioClient: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSid,
			Password: authToken,
		}),
	}
}

// GetIceServers handles GET /api/ice-servers.
func (h *IceHandler) GetIceServers(w http.ResponseWriter, r *http.Request) {
	ttl := 86400
	token, err := h.twilioClient.Api.CreateToken(&twilioApi.CreateTokenParams{
		Ttl: &ttl,
	})
	if err != nil {
		log.Printf("[ERROR] Failed to fetch ICE servers: %v", err)
		http.Error(w, "Failed to get ICE servers", http.StatusInternalServerError)
		return
	}

	servers := make([]map[string]interface{}, 0)
	if token.IceServers != nil {
		for _, server := range *token.IceServers {
			servers = append(servers, map[string]interface{}{
				"urls":       server.Url,
				"username":   server.Username,
				"credential": server.Credential,
			})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"iceServers": servers,
	})
}
