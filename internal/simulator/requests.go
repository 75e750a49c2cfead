package simulator

import (
	"math/rand"

	"github.com/chrisdamba/ridetopo/internal/models"
	"github.com/chrisdamba/ridetopo/internal/network"
)

// UniformRequests draws n requests whose origin and destination are two
// distinct nodes chosen uniformly at random. Inter-arrival times are
// exponential with the given rate.
func UniformRequests(rng *rand.Rand, net *network.Network, n int, rate float64) []models.Request {
	nodes := net.NumNodes()
	requests := make([]models.Request, n)
	t := 0.0
	for i := range requests {
		t += rng.ExpFloat64() / rate
		origin := rng.Intn(nodes)
		destination := rng.Intn(nodes - 1)
		if destination >= origin {
			destination++
		}
		requests[i] = models.Request{
			ID:          int64(i + 1),
			Time:        t,
			Origin:      origin,
			Destination: destination,
		}
	}
	return requests
}
