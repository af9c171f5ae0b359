package proj4_coordinate_converter

import "fmt"

// Proj4 definitions of the supported EPSG codes
var epsgDefinitions = map[int]string{
	4326:  "+proj=longlat +datum=WGS84 +no_defs",
	4258:  "+proj=longlat +ellps=GRS80 +towgs84=0,0,0,0,0,0,0 +no_defs",
	4269:  "+proj=longlat +datum=NAD83 +no_defs",
	4978:  "+proj=geocent +datum=WGS84 +units=m +no_defs",
	3857:  "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +wktext +no_defs",
	2056:  "+proj=somerc +lat_0=46.95240555555556 +lon_0=7.439583333333333 +k_0=1 +x_0=2600000 +y_0=1200000 +ellps=bessel +towgs84=674.374,15.056,405.346,0,0,0,0 +units=m +no_defs",
	3035:  "+proj=laea +lat_0=52 +lon_0=10 +x_0=4321000 +y_0=3210000 +ellps=GRS80 +towgs84=0,0,0,0,0,0,0 +units=m +no_defs",
	25832: "+proj=utm +zone=32 +ellps=GRS80 +towgs84=0,0,0,0,0,0,0 +units=m +no_defs",
	25833: "+proj=utm +zone=33 +ellps=GRS80 +towgs84=0,0,0,0,0,0,0 +units=m +no_defs",
}

func init() {
	for zone := 1; zone <= 60; zone++ {
		epsgDefinitions[32600+zone] = fmt.Sprintf("+proj=utm +zone=%d +datum=WGS84 +units=m +no_defs", zone)
		epsgDefinitions[32700+zone] = fmt.Sprintf("+proj=utm +zone=%d +south +datum=WGS84 +units=m +no_defs", zone)
	}
	for zone := 1; zone <= 23; zone++ {
		epsgDefinitions[26900+zone] = fmt.Sprintf("+proj=utm +zone=%d +datum=NAD83 +units=m +no_defs", zone)
	}
}

// Reports whether a proj4 definition is known for the code
func IsSupported(epsg int) bool {
	_, ok := epsgDefinitions[epsg]
	return ok
}
