package risk

import (
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/rickgao/treasury-basis/internal/model"
)

// DefaultBandZ is the one-tailed 99% z-score used for bands.
const DefaultBandZ = 2.326

// Band bounds the recent close and volume of one contract.
type Band struct {
	Conid       int64
	PriceMean   float64
	PriceUpper  float64
	PriceLower  float64
	VolumeMean  float64
	VolumeUpper float64
	VolumeLower float64
}

// Bands returns mean +/- z population standard deviations of close and
// volume over sequences 1 to 29 of each contract. Contracts with fewer than
// two bars in range are omitted. A non-positive z uses DefaultBandZ.
func Bands(bars []model.Bar, z float64) []Band {
	if z <= 0 {
		z = DefaultBandZ
	}
	type series struct{ close, volume []float64 }
	byConid := make(map[int64]*series)
	for _, b := range bars {
		if b.Sequence < 1 || b.Sequence > 29 {
			continue
		}
		s, ok := byConid[b.Conid]
		if !ok {
			s = &series{}
			byConid[b.Conid] = s
		}
		s.close = append(s.close, b.Close)
		s.volume = append(s.volume, b.Volume)
	}

	out := make([]Band, 0, len(byConid))
	for conid, s := range byConid {
		if len(s.close) < 2 {
			continue
		}
		pm, pu, pl := band(s.close, z)
		vm, vu, vl := band(s.volume, z)
		out = append(out, Band{
			Conid:       conid,
			PriceMean:   pm,
			PriceUpper:  pu,
			PriceLower:  pl,
			VolumeMean:  vm,
			VolumeUpper: vu,
			VolumeLower: vl,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Conid < out[j].Conid })
	return out
}

func band(data []float64, z float64) (mean, upper, lower float64) {
	mean, _ = stats.Mean(data)
	sd, _ := stats.StandardDeviationPopulation(data)
	return mean, mean + z*sd, mean - z*sd
}
