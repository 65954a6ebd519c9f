package nugul

// fallbackZones are shown when the bounds query cannot reach
// the API so the map is never empty. The data is clearly
// sample data, attributed to the administrator.
var fallbackZones = []Zone{
	{
		ID:          1,
		Region:      "서울특별시",
		Type:        "실외",
		Subtype:     "공원",
		Description: "시청 근처 흡연구역",
		Latitude:    37.5665,
		Longitude:   126.978,
		Address:     "서울특별시 중구 세종대로 1가",
		User:        "관리자",
	},
	{
		ID:          2,
		Region:      "서울특별시",
		Type:        "실외",
		Subtype:     "거리",
		Description: "광화문 주변 흡연구역",
		Latitude:    37.572,
		Longitude:   126.9769,
		Address:     "서울특별시 종로구 세종로 1",
		User:        "관리자",
	},
}

// FallbackZones returns a copy of the sample zones.
func FallbackZones() []Zone {
	zones := make([]Zone, len(fallbackZones))
	copy(zones, fallbackZones)
	return zones
}
