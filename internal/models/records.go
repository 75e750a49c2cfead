package models

import (
	"strconv"
)

// Request is a single trip request between two distinct nodes.
type Request struct {
	ID          int64
	Time        float64
	Origin      int
	Destination int
}

// RequestRecord is the outcome of one served request.
type RequestRecord struct {
	RunID          string  `json:"runId" parquet:"name=runId,type=BYTE_ARRAY,convertedtype=UTF8"`
	Topology       string  `json:"topology" parquet:"name=topology,type=BYTE_ARRAY,convertedtype=UTF8"`
	PointIndex     int64   `json:"pointIndex" parquet:"name=pointIndex,type=INT64"`
	X              float64 `json:"x" parquet:"name=x,type=DOUBLE"`
	RequestID      int64   `json:"requestId" parquet:"name=requestId,type=INT64"`
	Origin         int64   `json:"origin" parquet:"name=origin,type=INT64"`
	Destination    int64   `json:"destination" parquet:"name=destination,type=INT64"`
	RequestTime    float64 `json:"requestTime" parquet:"name=requestTime,type=DOUBLE"`
	PickupTime     float64 `json:"pickupTime" parquet:"name=pickupTime,type=DOUBLE"`
	DropoffTime    float64 `json:"dropoffTime" parquet:"name=dropoffTime,type=DOUBLE"`
	WaitTime       float64 `json:"waitTime" parquet:"name=waitTime,type=DOUBLE"`
	InVehicleTime  float64 `json:"inVehicleTime" parquet:"name=inVehicleTime,type=DOUBLE"`
	DirectDistance int64   `json:"directDistance" parquet:"name=directDistance,type=INT64"`
}

var requestHeader = []string{
	"run_id", "topology", "point_index", "x", "request_id", "origin", "destination",
	"request_time", "pickup_time", "dropoff_time", "wait_time", "in_vehicle_time", "direct_distance",
}

func (RequestRecord) CSVHeader() []string { return requestHeader }

func (r RequestRecord) CSVRow() []string {
	return []string{
		r.RunID,
		r.Topology,
		strconv.FormatInt(r.PointIndex, 10),
		formatFloat(r.X),
		strconv.FormatInt(r.RequestID, 10),
		strconv.FormatInt(r.Origin, 10),
		strconv.FormatInt(r.Destination, 10),
		formatFloat(r.RequestTime),
		formatFloat(r.PickupTime),
		formatFloat(r.DropoffTime),
		formatFloat(r.WaitTime),
		formatFloat(r.InVehicleTime),
		strconv.FormatInt(r.DirectDistance, 10),
	}
}

// InsertionRecord describes the bus state at the moment a request was
// inserted into its route.
type InsertionRecord struct {
	RunID          string  `json:"runId" parquet:"name=runId,type=BYTE_ARRAY,convertedtype=UTF8"`
	Topology       string  `json:"topology" parquet:"name=topology,type=BYTE_ARRAY,convertedtype=UTF8"`
	PointIndex     int64   `json:"pointIndex" parquet:"name=pointIndex,type=INT64"`
	X              float64 `json:"x" parquet:"name=x,type=DOUBLE"`
	RequestID      int64   `json:"requestId" parquet:"name=requestId,type=INT64"`
	Time           float64 `json:"time" parquet:"name=time,type=DOUBLE"`
	StoplistLength int64   `json:"stoplistLength" parquet:"name=stoplistLength,type=INT64"`
	// -1 when the network type does not compute volumes
	RouteVolume    int64 `json:"routeVolume" parquet:"name=routeVolume,type=INT64"`
	RemainingRoute int64 `json:"remainingRoute" parquet:"name=remainingRoute,type=INT64"`
	PickupIndex    int64 `json:"pickupIndex" parquet:"name=pickupIndex,type=INT64"`
	DropoffIndex   int64 `json:"dropoffIndex" parquet:"name=dropoffIndex,type=INT64"`
	PickupEnRoute  bool  `json:"pickupEnRoute" parquet:"name=pickupEnRoute,type=BOOLEAN"`
	DropoffEnRoute bool  `json:"dropoffEnRoute" parquet:"name=dropoffEnRoute,type=BOOLEAN"`
}

var insertionHeader = []string{
	"run_id", "topology", "point_index", "x", "request_id", "time", "stoplist_length",
	"route_volume", "remaining_route", "pickup_index", "dropoff_index", "pickup_en_route", "dropoff_en_route",
}

func (InsertionRecord) CSVHeader() []string { return insertionHeader }

func (r InsertionRecord) CSVRow() []string {
	return []string{
		r.RunID,
		r.Topology,
		strconv.FormatInt(r.PointIndex, 10),
		formatFloat(r.X),
		strconv.FormatInt(r.RequestID, 10),
		formatFloat(r.Time),
		strconv.FormatInt(r.StoplistLength, 10),
		strconv.FormatInt(r.RouteVolume, 10),
		strconv.FormatInt(r.RemainingRoute, 10),
		strconv.FormatInt(r.PickupIndex, 10),
		strconv.FormatInt(r.DropoffIndex, 10),
		strconv.FormatBool(r.PickupEnRoute),
		strconv.FormatBool(r.DropoffEnRoute),
	}
}

// PointSummary aggregates one rate point of a sweep.
type PointSummary struct {
	Index              int     `json:"index" bson:"index"`
	X                  float64 `json:"x" bson:"x"`
	Rate               float64 `json:"rate" bson:"rate"`
	NumRequests        int     `json:"numRequests" bson:"numRequests"`
	MeanWait           float64 `json:"meanWait" bson:"meanWait"`
	MeanInVehicle      float64 `json:"meanInVehicle" bson:"meanInVehicle"`
	MeanDirectDistance float64 `json:"meanDirectDistance" bson:"meanDirectDistance"`
	MeanDetourRatio    float64 `json:"meanDetourRatio" bson:"meanDetourRatio"`
	MeanStoplistLength float64 `json:"meanStoplistLength" bson:"meanStoplistLength"`
	// -1 when volumes were not computed
	MeanRouteVolume    float64 `json:"meanRouteVolume" bson:"meanRouteVolume"`
	PickupEnRouteFrac  float64 `json:"pickupEnRouteFrac" bson:"pickupEnRouteFrac"`
	DropoffEnRouteFrac float64 `json:"dropoffEnRouteFrac" bson:"dropoffEnRouteFrac"`
	MeanOccupancy      float64 `json:"meanOccupancy" bson:"meanOccupancy"`
	Efficiency         float64 `json:"efficiency" bson:"efficiency"`
	DistanceDriven     int64   `json:"distanceDriven" bson:"distanceDriven"`
	Horizon            float64 `json:"horizon" bson:"horizon"`
}

// PointResult is everything produced by simulating one rate point.
type PointResult struct {
	RunID      string
	Topology   string
	Kind       string
	LAvg       float64
	Summary    PointSummary
	Requests   []RequestRecord
	Insertions []InsertionRecord
}

// Summary is the persisted per-topology result consumed by the figures.
type Summary struct {
	Topology string         `json:"topology"`
	Kind     string         `json:"kind"`
	Nodes    int            `json:"nodes"`
	Edges    int            `json:"edges"`
	LAvg     float64        `json:"lAvg"`
	RunID    string         `json:"runId"`
	Points   []PointSummary `json:"points"`
}

func (s *Summary) HasPoint(index int) bool {
	for _, p := range s.Points {
		if p.Index == index {
			return true
		}
	}
	return false
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
