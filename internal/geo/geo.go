package geo

import (
	apperrors "classtix/pkg/app_errors"
	"math"
)

const (
	earthRadiusKm = 6371.0
	// kmPerDegreeLat 緯度每度約 111.32 公里
	kmPerDegreeLat = 111.32
)

// Point 經緯度座標
type Point struct {
	Lat float64
	Lon float64
}

// NewPoint 驗證並建立座標：超出範圍或 NaN 視為輸入錯誤，不靜默歸零
func NewPoint(lat, lon float64) (Point, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return Point{}, apperrors.ErrInvalidCoordinates
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Point{}, apperrors.ErrInvalidCoordinates
	}
	return Point{Lat: lat, Lon: lon}, nil
}

// Box 經緯度包圍盒，作為精確距離計算前的粗篩
// MinLon > MaxLon 表示經度區間跨越 ±180 經線，拆成 [MinLon, 180] 和 [-180, MaxLon] 兩段
type Box struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// WrapsAntimeridian 經度區間是否跨越 ±180 經線
func (b Box) WrapsAntimeridian() bool {
	return b.MinLon > b.MaxLon
}

// BoundingBox 以小角度近似計算包圍盒
// 角落可能含誤判（比半徑遠），但絕不漏掉半徑內的點（superset 保證）
func BoundingBox(center Point, radiusKm float64) Box {
	latDelta := radiusKm / kmPerDegreeLat

	// 經度每度的公里數隨緯度縮小；接近極區時 cos 趨近 0，放寬成全經度範圍
	lonDelta := 180.0
	if cos := math.Cos(center.Lat * math.Pi / 180); cos > 1e-6 {
		lonDelta = radiusKm / (kmPerDegreeLat * cos)
	}

	if lonDelta >= 180 {
		return Box{
			MinLat: center.Lat - latDelta,
			MaxLat: center.Lat + latDelta,
			MinLon: -180,
			MaxLon: 180,
		}
	}

	// 超出 ±180 的端點繞回另一側，區間變成跨 ±180 經線的兩段
	minLon := center.Lon - lonDelta
	maxLon := center.Lon + lonDelta
	if minLon < -180 {
		minLon += 360
	}
	if maxLon > 180 {
		maxLon -= 360
	}

	return Box{
		MinLat: center.Lat - latDelta,
		MaxLat: center.Lat + latDelta,
		MinLon: minLon,
		MaxLon: maxLon,
	}
}

// Contains 檢查座標是否落在包圍盒內
func (b Box) Contains(p Point) bool {
	if p.Lat < b.MinLat || p.Lat > b.MaxLat {
		return false
	}
	if b.WrapsAntimeridian() {
		return p.Lon >= b.MinLon || p.Lon <= b.MaxLon
	}
	return p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// Haversine 計算兩點的大圓距離（公里）
func Haversine(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}
