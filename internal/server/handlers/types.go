package handlers

// WeatherParams binds the path parameters shared by both weather endpoints.
type WeatherParams struct {
	CountryCode string `uri:"country_code" binding:"required,len=2,alpha"`
	CityName    string `uri:"city_name" binding:"required,min=1,max=250"`
}

// ForecastQuery binds the optional day count of the forecast endpoint.
type ForecastQuery struct {
	Days int `form:"days,default=10" binding:"omitempty,min=1,max=16"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// HealthResponse reports service health and identity.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service,omitempty"`
	Version   string `json:"version,omitempty"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp,omitempty"`
}
