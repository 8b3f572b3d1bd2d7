package api

import (
	"net/http"

	"github.com/pbel78/scratch2/internal/bridges/zigbee"
)

// vocabularyResponse lists the presets and known devices a command source
// can offer.
type vocabularyResponse struct {
	Brightness map[string]uint8      `json:"brightness"`
	Colors     map[string]zigbee.RGB `json:"colors"`
	Devices    []zigbee.Device       `json:"devices"`
}

func (s *Server) handleVocabulary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, vocabularyResponse{
		Brightness: zigbee.BrightnessPresets,
		Colors:     zigbee.ColorPresets,
		Devices:    zigbee.KnownDevices,
	})
}
