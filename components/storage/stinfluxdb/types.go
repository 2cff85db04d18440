package stinfluxdb

// DBParams provides various configuration options for influxDB.
type DBParams struct {
	// URL is an influxDB API URL.
	URL string

	// Org is an influxDB organization name.
	Org string

	// Bucket is an influxDB bucket to store the data points.
	Bucket string

	// Token is an influxDB API token.
	Token string
}

// Valid returns true if all required influxDB parameters are set.
func (p DBParams) Valid() bool {
	return p.URL != "" && p.Org != "" && p.Bucket != "" && p.Token != ""
}
