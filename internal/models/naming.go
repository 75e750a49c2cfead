package models

import (
	"fmt"
	"strconv"
)

// StreetTopologyName is the topology name of a homogenized street network.
// Variants carry their coarse graining parameters in the name.
func StreetTopologyName(network string, variant *CoarseGraining) string {
	if variant == nil {
		return fmt.Sprintf("street_%s_homogenized", network)
	}
	return fmt.Sprintf("street_%s_homogenized_coarse_graining_meters_%s_target_edge_length_%s",
		network, trimFloat(variant.Meters), trimFloat(variant.TargetEdgeLength))
}

// StreetTopologies lists every topology name a street network config produces,
// base network first.
func (sn StreetNetworkConfig) StreetTopologies() []string {
	names := []string{StreetTopologyName(sn.Name, nil)}
	for i := range sn.Variants {
		names = append(names, StreetTopologyName(sn.Name, &sn.Variants[i]))
	}
	return names
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
