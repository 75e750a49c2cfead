package models

const (
	OutputFormatParquet = "parquet"
	OutputFormatCSV     = "csv"
	OutputFormatJSON    = "json"
	OutputFormatConsole = "console"

	DestinationLocal = "local"
	DestinationCloud = "cloud"

	// network types decide whether route volumes are computed
	NetworkTypeRing      = "ring"
	NetworkTypeLine      = "line"
	NetworkTypeStar      = "star"
	NetworkTypeGrid      = "grid"
	NetworkTypeTrigrid   = "trigrid"
	NetworkTypeNoVolComp = "novolcomp"

	KindRing    = "ring"
	KindLine    = "line"
	KindStar    = "star"
	KindGrid    = "grid"
	KindTrigrid = "trigrid"
	KindStreet  = "street"

	DirOSM      = "osm"
	DirNetworks = "networks"
	DirResults  = "results"

	TopicRequests   = "requests"
	TopicInsertions = "insertions"
)
