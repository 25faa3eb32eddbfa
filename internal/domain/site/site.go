package site

import "errors"

type Site struct {
	Location  string  `json:"location"`
	Name      string  `json:"site"`
	Capacity  int     `json:"capacity"`
	Available int     `json:"available"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Code      string  `json:"-"` // access code, only disclosed when a session starts
	Price     float64 `json:"price"`
}

var ErrNotFound = errors.New("parking site not found")

// error if every slot of the site is taken
var ErrFull = errors.New("parking site is full")

type CreateSiteRequest struct {
	Location string  `json:"location" binding:"required,min=1,max=80"`
	Site     string  `json:"site" binding:"required,min=1,max=80"`
	Capacity int     `json:"capacity" binding:"required,min=1,max=100000"`
	Lat      float64 `json:"lat" binding:"min=-90,max=90"`
	Lon      float64 `json:"lon" binding:"min=-180,max=180"`
	Price    float64 `json:"price" binding:"min=0"`
}
