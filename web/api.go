package web

import (
	"encoding/json"
	"github.com/gorilla/mux"
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
	"net/http"
	"roadview/geo"
	ownIo "roadview/io"
	"roadview/roads"
	"roadview/selection"
	"roadview/streetview"
	"strconv"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type RoadResponse struct {
	ID      osm.WayID          `json:"id"`
	Nodes   []osm.NodeID       `json:"nodes"`
	Tags    map[string]string  `json:"tags"`
	OneWay  string             `json:"oneway"`
	Outcome *selection.Outcome `json:"outcome,omitempty"`
}

type RoadListResponse struct {
	Count int         `json:"count"`
	IDs   []osm.WayID `json:"ids"`
}

func StartServer(port string, network *roads.Network, selector *selection.Selector) {
	r := initRouter(network, selector)
	sigolo.Infof("Start server without TLS support on port %s", port)
	err := http.ListenAndServe(":"+port, r)
	sigolo.FatalCheck(err)
}

func StartServerTls(port string, certFile string, keyFile string, network *roads.Network, selector *selection.Selector) {
	r := initRouter(network, selector)
	sigolo.Infof("Start server with TLS support on port %s", port)
	err := http.ListenAndServeTLS(":"+port, certFile, keyFile, r)
	sigolo.FatalCheck(err)
}

// initRouter creates the routes of the review API. Without selector, selections can't be requested.
func initRouter(network *roads.Network, selector *selection.Selector) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/roads", func(writer http.ResponseWriter, request *http.Request) {
		ids := network.RoadIDs()
		writeJson(writer, http.StatusOK, RoadListResponse{Count: len(ids), IDs: ids})
	}).Methods(http.MethodGet)

	r.HandleFunc("/roads.geojson", func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/geo+json")
		err := ownIo.WriteNetworkAsGeoJson(network, writer)
		if err != nil {
			sigolo.Errorf("Error writing road network: %+v", err)
		}
	}).Methods(http.MethodGet)

	r.HandleFunc("/roads/{id}", func(writer http.ResponseWriter, request *http.Request) {
		road, ok := findRoad(writer, request, network)
		if !ok {
			return
		}
		writeJson(writer, http.StatusOK, toRoadResponse(road))
	}).Methods(http.MethodGet)

	r.HandleFunc("/roads/{id}/selection", func(writer http.ResponseWriter, request *http.Request) {
		if selector == nil {
			writeError(writer, http.StatusServiceUnavailable, "Selection not available", "The server has been started without imagery provider")
			return
		}

		road, ok := findRoad(writer, request, network)
		if !ok {
			return
		}

		outcome, err := selector.Select(request.Context(), road)
		if err != nil {
			sigolo.Errorf("Error selecting image for road %d: %+v", road.ID, err)
			writeError(writer, statusOfSelectionError(err), "Selection failed", err.Error())
			return
		}

		sigolo.Debugf("Selection for road %d: %s", road.ID, outcome.String())

		if request.URL.Query().Get("format") == "geojson" {
			writer.Header().Set("Content-Type", "application/geo+json")
			err = ownIo.WriteOutcomesAsGeoJson([]*selection.Outcome{outcome}, writer)
			if err != nil {
				sigolo.Errorf("Error writing selection outcome: %+v", err)
			}
			return
		}

		response := toRoadResponse(road)
		response.Outcome = outcome
		writeJson(writer, http.StatusOK, response)
	}).Methods(http.MethodGet)

	return r
}

func findRoad(writer http.ResponseWriter, request *http.Request, network *roads.Network) (*roads.Road, bool) {
	idString := mux.Vars(request)["id"]
	id, err := strconv.ParseInt(idString, 10, 64)
	if err != nil {
		writeError(writer, http.StatusBadRequest, "Invalid road ID", idString)
		return nil, false
	}

	road, ok := network.Roads[osm.WayID(id)]
	if !ok {
		writeError(writer, http.StatusNotFound, "Road not found", idString)
		return nil, false
	}

	return road, true
}

func toRoadResponse(road *roads.Road) *RoadResponse {
	return &RoadResponse{
		ID:     road.ID,
		Nodes:  road.NodeIDs,
		Tags:   road.Tags,
		OneWay: road.OneWay.String(),
	}
}

// statusOfSelectionError maps invalid geometries to 422 and provider failures to 502.
func statusOfSelectionError(err error) int {
	var geometryError *geo.GeometryError
	if errors.As(err, &geometryError) {
		return http.StatusUnprocessableEntity
	}

	var providerError *streetview.ProviderError
	if errors.As(err, &providerError) {
		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}

func writeError(writer http.ResponseWriter, status int, message string, details string) {
	writeJson(writer, status, ErrorResponse{Error: message, Details: details})
}

func writeJson(writer http.ResponseWriter, status int, value any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.Header().Set("Access-Control-Allow-Origin", "*")
	writer.WriteHeader(status)

	err := json.NewEncoder(writer).Encode(value)
	if err != nil {
		sigolo.Errorf("Error writing response: %+v", err)
	}
}
