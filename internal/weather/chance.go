// Package weather turns an hourly forecast into a sky visibility chance and
// provides forecast providers and caching.
package weather

import (
	"fmt"
	"math"
)

// Chance defaults.
const (
	DefaultHours          = 12
	DefaultCloudThreshold = 30.0

	highWindKmh     = 30.0
	heavyRainMmHour = 2.5
	stormMmHour     = 7.5
)

// NeutralChance and NeutralReason are reported when no forecast is available.
const (
	NeutralChance = 50.0
	NeutralReason = "Weather data unavailable; visibility chance is an estimate."
)

// Forecast holds parallel hourly series starting at the observation hour.
// Wind may be nil or shorter than the other series; missing values count
// as calm.
type Forecast struct {
	CloudCover    []float64 `json:"cloud_cover" cbor:"c"`   // percent
	Precipitation []float64 `json:"precipitation" cbor:"p"` // mm/h
	WindSpeed     []float64 `json:"wind_speed" cbor:"w"`    // km/h
}

// Assessment is the visibility chance (0-100) with a human readable reason.
type Assessment struct {
	Chance   float64 `json:"chance"`
	Reason   string  `json:"reason"`
	Fallback bool    `json:"fallback,omitempty"`
}

// Neutral returns the assessment used when the forecast is unavailable.
func Neutral() Assessment {
	return Assessment{Chance: NeutralChance, Reason: NeutralReason, Fallback: true}
}

// conditions tallies adverse hours for the reason text.
type conditions struct {
	cloudy    int
	lightRain int
	heavyRain int
	highWind  int
	maxPrecip float64
	avgCloud  float64
}

// Chance scores the first hours of the forecast. Hours closer to now weigh
// more. The weight decays by 0.05 per hour with a floor of 0.5.
func Chance(f Forecast, hours int, cloudThreshold float64) Assessment {
	if hours <= 0 {
		hours = DefaultHours
	}

	n := min(hours, len(f.CloudCover), len(f.Precipitation))

	var c conditions
	var totalScore, totalWeight float64

	for i := 0; i < n; i++ {
		cloud := f.CloudCover[i]
		precip := f.Precipitation[i]
		var wind float64
		if i < len(f.WindSpeed) {
			wind = f.WindSpeed[i]
		}

		c.avgCloud += cloud
		if cloud >= cloudThreshold {
			c.cloudy++
		}
		if precip > 0 && precip <= heavyRainMmHour {
			c.lightRain++
		}
		if precip > heavyRainMmHour {
			c.heavyRain++
		}
		c.maxPrecip = math.Max(c.maxPrecip, precip)
		if wind > highWindKmh {
			c.highWind++
		}

		weight := math.Max(0.5, 1.0-float64(i)*0.05)
		totalScore += hourScore(cloud, precip, wind, cloudThreshold) * weight
		totalWeight += weight
	}

	var chance float64
	if totalWeight > 0 {
		chance = totalScore / totalWeight * 100
	}
	if n > 0 {
		c.avgCloud /= float64(n)
	}

	return Assessment{Chance: chance, Reason: reason(hours, c, chance)}
}

func hourScore(cloud, precip, wind, cloudThreshold float64) float64 {
	score := 1.0

	switch {
	case precip <= 0:
	case precip <= 0.5:
		score *= 0.75
	case precip <= heavyRainMmHour:
		score *= 0.40
	case precip <= stormMmHour:
		score *= 0.15
	default:
		score *= 0.05
	}

	if cloud > cloudThreshold {
		var penalty float64
		switch {
		case cloud < 50:
			penalty = 0.85 - (cloud-cloudThreshold)/100*0.5
		case cloud < 75:
			penalty = 0.70 - (cloud-50)/100*0.4
		default:
			penalty = 0.40 - (cloud-75)/100*0.3
		}
		score *= math.Max(0.1, penalty)
	}

	if wind > highWindKmh {
		score *= math.Max(0.85, 1.0-(wind-highWindKmh)/100)
	}

	if precip > 0 && cloud > 60 {
		score *= 0.85
	}

	return math.Max(0, math.Min(1, score))
}

// reason picks the message for the chance band from the dominant adverse
// condition. Thresholds are fractions of the requested window, not of the
// hours actually available.
func reason(hours int, c conditions, chance float64) string {
	total := float64(hours)
	rain := c.lightRain + c.heavyRain

	switch {
	case chance >= 85:
		if c.avgCloud < 20 {
			return "Exceptional viewing conditions! Crystal clear skies expected."
		}
		return "Great visibility expected with mostly clear skies."

	case chance >= 70:
		if c.cloudy > 0 {
			return fmt.Sprintf("Good conditions overall, though some clouds (%dh) may pass through.", c.cloudy)
		}
		return "Good visibility expected with favorable weather."

	case chance >= 50:
		switch {
		case rain > 0 && float64(c.cloudy) > total*0.5:
			return fmt.Sprintf("Mixed conditions with %dh of rain and %dh of clouds. Visibility will be intermittent.", rain, c.cloudy)
		case rain > 0:
			return fmt.Sprintf("Fair conditions, but expect some rain (%dh) that will temporarily reduce visibility.", rain)
		default:
			return fmt.Sprintf("Partly cloudy skies (%dh) will create variable viewing conditions.", c.cloudy)
		}

	case chance >= 30:
		switch {
		case c.heavyRain > 0:
			msg := fmt.Sprintf("Challenging conditions with %dh of heavy rain", c.heavyRain)
			if c.maxPrecip > stormMmHour {
				msg += fmt.Sprintf(" (up to %.1fmm/h)", c.maxPrecip)
			}
			return msg + ". Visibility will be significantly reduced."
		case float64(rain) >= total*0.6:
			return fmt.Sprintf("Poor visibility likely due to persistent rain (%dh) throughout the period.", rain)
		default:
			return fmt.Sprintf("Difficult viewing conditions with extensive cloud cover (%dh) and some precipitation.", c.cloudy)
		}
	}

	switch {
	case float64(c.heavyRain) >= total*0.4:
		return fmt.Sprintf("Very poor conditions. Heavy rain expected for %dh with storms possible (max %.1fmm/h). Visibility will be minimal.", c.heavyRain, c.maxPrecip)
	case float64(rain) >= total*0.7 && float64(c.cloudy) >= total*0.8:
		return fmt.Sprintf("Unfavorable weather: near-constant rain (%dh) and thick cloud cover (%dh). Visibility will be severely limited.", rain, c.cloudy)
	case c.avgCloud > 85:
		return fmt.Sprintf("Very cloudy conditions (avg %.0f%% cover) will severely obstruct visibility.", c.avgCloud)
	default:
		return fmt.Sprintf("Poor conditions with %dh of rain and %dh of heavy clouds. Not ideal for observation.", rain, c.cloudy)
	}
}
