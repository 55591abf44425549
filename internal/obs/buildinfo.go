package obs

import "github.com/prometheus/client_golang/prometheus"

var buildInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "fastjob_devtools_build_info",
		Help: "Build information of the running tool.",
	},
	[]string{"tool", "version"},
)

// InitBuildInfo records build_info{tool, version} 1.
func InitBuildInfo(tool, version string) {
	buildInfo.WithLabelValues(tool, version).Set(1)
}
