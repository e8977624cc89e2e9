// Package geo 提供球面距离计算，用于照护者附近患者判断。
package geo

import (
	"math"
	"sort"
)

// EarthRadiusKm 平均地球半径
const EarthRadiusKm = 6371.0

// ProximityThresholdMeters 判定为"附近"的距离阈值
const ProximityThresholdMeters = 10.0

// Point 经纬度（度）
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Fallback 照护者没有位置时使用的默认坐标（Accra）
var Fallback = Point{Latitude: 5.5600, Longitude: -0.2050}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Haversine 返回两点间的大圆距离（公里）
func Haversine(a, b Point) float64 {
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

// WithinRadius 边界包含在内
func WithinRadius(distanceKm, meters float64) bool {
	return distanceKm*1000 <= meters
}

// Candidate 待判断的一个位置
type Candidate[T any] struct {
	Item  T
	Point Point
}

// Match 命中的位置及距离
type Match[T any] struct {
	Item       T
	DistanceKm float64
}

// Nearby 返回 origin 周围 meters 范围内的候选，按距离升序
func Nearby[T any](origin Point, candidates []Candidate[T], meters float64) []Match[T] {
	var out []Match[T]
	for _, c := range candidates {
		d := Haversine(origin, c.Point)
		if WithinRadius(d, meters) {
			out = append(out, Match[T]{Item: c.Item, DistanceKm: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out
}
