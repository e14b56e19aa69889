// Package web exposes the reverse geocoder over HTTP for host applications
// that prefer a local endpoint over linking the library.
package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb/project"

	"revgeo/geocoder"
)

// AddressResponse is the JSON shape of one ranked address. Lng/Lat are the
// address position converted back to geographic degrees.
type AddressResponse struct {
	Type          string  `json:"type"`
	Country       string  `json:"country,omitempty"`
	Region        string  `json:"region,omitempty"`
	County        string  `json:"county,omitempty"`
	Locality      string  `json:"locality,omitempty"`
	Neighbourhood string  `json:"neighbourhood,omitempty"`
	Street        string  `json:"street,omitempty"`
	Postcode      string  `json:"postcode,omitempty"`
	HouseNumber   string  `json:"housenumber,omitempty"`
	Name          string  `json:"name,omitempty"`
	Lng           float64 `json:"lng"`
	Lat           float64 `json:"lat"`
	Rank          float32 `json:"rank"`
}

func StartServer(port string, revGeocoder *geocoder.RevGeocoder) {
	r := InitRouter(revGeocoder)
	sigolo.Infof("Start server on port %s", port)
	err := http.ListenAndServe(":"+port, r)
	sigolo.FatalCheck(err)
}

func InitRouter(revGeocoder *geocoder.RevGeocoder) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/reverse", func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Access-Control-Allow-Origin", "*")

		lng, lngErr := strconv.ParseFloat(request.URL.Query().Get("lng"), 64)
		lat, latErr := strconv.ParseFloat(request.URL.Query().Get("lat"), 64)
		if lngErr != nil || latErr != nil {
			writer.WriteHeader(http.StatusBadRequest)
			_, err := writer.Write([]byte("Query parameters 'lng' and 'lat' must be set to valid coordinates."))
			if err != nil {
				sigolo.Errorf("Error writing error response: %+v", err)
			}
			return
		}

		sigolo.Debugf("Reverse geocode lng=%f, lat=%f", lng, lat)

		rankedAddresses, err := revGeocoder.FindAddresses(lng, lat)
		if err != nil {
			sigolo.Errorf("Error finding addresses: %+v", err)
			writer.WriteHeader(http.StatusInternalServerError)
			_, err = writer.Write([]byte("Error finding addresses."))
			if err != nil {
				sigolo.Errorf("Error writing error response: %+v", err)
			}
			return
		}

		response := make([]AddressResponse, 0, len(rankedAddresses))
		for _, rankedAddress := range rankedAddresses {
			position := project.Point(rankedAddress.Address.Position, project.Mercator.ToWGS84)
			response = append(response, AddressResponse{
				Type:          rankedAddress.Address.Type.String(),
				Country:       rankedAddress.Address.Country,
				Region:        rankedAddress.Address.Region,
				County:        rankedAddress.Address.County,
				Locality:      rankedAddress.Address.Locality,
				Neighbourhood: rankedAddress.Address.Neighbourhood,
				Street:        rankedAddress.Address.Street,
				Postcode:      rankedAddress.Address.Postcode,
				HouseNumber:   rankedAddress.Address.HouseNumber,
				Name:          rankedAddress.Address.Name,
				Lng:           position[0],
				Lat:           position[1],
				Rank:          rankedAddress.Rank,
			})
		}

		writer.Header().Set("Content-Type", "application/json")
		err = json.NewEncoder(writer).Encode(response)
		if err != nil {
			sigolo.Errorf("Error writing query result: %+v", err)
		}
	}).Methods(http.MethodGet)

	return r
}
