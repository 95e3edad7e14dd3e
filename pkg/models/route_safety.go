package models

// Coordinates представляет географические координаты
type Coordinates struct {
	Lat float64 `json:"lat"` // Широта
	Lng float64 `json:"lng"` // Долгота
}

// CrashRecord одна запись об аварии из исторического набора данных
type CrashRecord struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Severity  float64 `json:"crash_sev_id"` // Порядковая тяжесть (>= 0)
}

// GridCell агрегированная ячейка сетки
type GridCell struct {
	LatBin       float64 `json:"lat_bin"`
	LngBin       float64 `json:"lng_bin"`
	MeanSeverity float64 `json:"mean_severity"`
	Count        int     `json:"count"`
}

// RouteStep шаг маршрута от провайдера маршрутов
type RouteStep struct {
	EndLocation      Coordinates `json:"end_location"`
	DurationSeconds  float64     `json:"duration_seconds"`
	DistanceMeters   float64     `json:"distance_meters"`
	HTMLInstructions string      `json:"html_instructions"`
}

// RouteLeg участок маршрута
type RouteLeg struct {
	DistanceText    string      `json:"distance_text"`
	DurationSeconds float64     `json:"duration_seconds"`
	Steps           []RouteStep `json:"steps"`
}

// Route маршрут-кандидат
type Route struct {
	Summary string     `json:"summary"`
	Legs    []RouteLeg `json:"legs"`
}

// Steps возвращает все шаги маршрута по порядку участков
func (r Route) Steps() []RouteStep {
	var steps []RouteStep
	for _, leg := range r.Legs {
		steps = append(steps, leg.Steps...)
	}
	return steps
}

// SafetyScore оценка безопасности маршрута
type SafetyScore struct {
	Value                float64 `json:"safety_score"`     // От 1 до 10, больше = безопаснее
	TotalDurationMinutes float64 `json:"duration_minutes"` // Суммарная длительность
}

// NarrationCue одна голосовая подсказка
type NarrationCue struct {
	Index     int     `json:"index"`
	Text      string  `json:"text"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// AnalyzeRequest запрос на анализ маршрутов
type AnalyzeRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// RouteDetail краткая информация о маршруте для клиента
type RouteDetail struct {
	SafetyScore     float64  `json:"safety_score"`
	DurationMinutes float64  `json:"duration_minutes"`
	Distance        string   `json:"distance"`
	HotspotSteps    int      `json:"hotspot_steps"` // Шаги в зонах с высокой аварийностью
	Steps           []string `json:"steps"`         // Первые шаги без разметки
}

// AnalyzeResponse ответ анализа маршрутов
type AnalyzeResponse struct {
	AnalysisID   string        `json:"analysis_id"`
	SafestIndex  int           `json:"safest_index"`
	RouteDetails []RouteDetail `json:"route_details"`
	Routes       []Route       `json:"routes"`
}

// StreamRequest запрос на поток подсказок.
// Заполняется либо Waypoints, либо Start/End.
type StreamRequest struct {
	Waypoints  []Coordinates `json:"waypoints,omitempty"`
	Start      string        `json:"start,omitempty"`
	End        string        `json:"end,omitempty"`
	RouteIndex *int          `json:"route_index,omitempty"`
}

// HealthResponse ответ проверки здоровья сервиса
type HealthResponse struct {
	Status        string  `json:"status"` // healthy/unhealthy
	ModelLoaded   bool    `json:"model_loaded"`
	GridCells     int     `json:"grid_cells"`
	ValidationMSE float64 `json:"validation_mse"`
	Hotspots      int     `json:"hotspots"`
	Version       string  `json:"version"`
}
