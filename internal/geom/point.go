package geom

type Point []float64

func NewPoint(vec []float64) Point {
	return vec
}

func (v Point) Points() []float64 {
	return v
}

func (v Point) Copy() Point {
	var v1 = make(Point, len(v))
	copy(v1, v)
	return v1
}

func (v Point) Add(vec Point) {
	for i := range v {
		v[i] += vec[i]
	}
}

func (v Point) Scale(value float64) {
	for i := range v {
		v[i] *= value
	}
}
