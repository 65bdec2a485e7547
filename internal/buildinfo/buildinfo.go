package buildinfo

const Graffiti = " _____                   _ \n|_   _| __ ___ _ __   __| |\n  | || '__/ _ \\ '_ \\ / _` |\n  | || | |  __/ | | | (_| |\n  |_||_|  \\___|_| |_|\\__,_|\n\n"

var (
	BuildTag string = "v0.0.0"
	Name     string = "TRENDSPOTTER"
	Time     string = ""
)

type buildinfo struct{}

func (buildinfo) Tag() string {
	return BuildTag
}

func (buildinfo) Name() string {
	return Name
}

func (buildinfo) Time() string {
	return Time
}

var Info buildinfo
