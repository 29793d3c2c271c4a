package video

import (
	"fmt"
	"math"
	"strings"
)

// Keyframe - значение громкости в момент выходного времени.
type Keyframe struct {
	Time  float64
	Value float64
}

// Automation - кусочно-линейная кривая громкости, по точке на каждый тик экспорта.
// Точки, лежащие на прямой между соседями, отбрасываются при записи, поэтому постоянная
// громкость остается одним сегментом.
type Automation struct {
	points []Keyframe
}

const collinearEps = 1e-6

// Record добавляет точку. Время не должно убывать.
func (a *Automation) Record(t, v float64) {
	n := len(a.points)
	if n > 0 && t <= a.points[n-1].Time {
		a.points[n-1].Value = v
		return
	}
	if n >= 2 {
		p0, p1 := a.points[n-2], a.points[n-1]
		// p1 лишняя, если лежит на отрезке p0 → новая точка
		want := p0.Value + (p1.Time-p0.Time)/(t-p0.Time)*(v-p0.Value)
		if math.Abs(want-p1.Value) < collinearEps {
			a.points[n-1] = Keyframe{Time: t, Value: v}
			return
		}
	}
	a.points = append(a.points, Keyframe{Time: t, Value: v})
}

func (a *Automation) Points() []Keyframe {
	return append([]Keyframe(nil), a.points...)
}

func (a *Automation) Len() int { return len(a.points) }

// Expression превращает кривую в выражение ffmpeg от t для `volume=...:eval=frame`.
// До первой точки держится первое значение, после последней - последнее.
func (a *Automation) Expression() string {
	switch len(a.points) {
	case 0:
		return "1"
	case 1:
		return fmt.Sprintf("%.6f", a.points[0].Value)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "if(lt(t,%.6f),%.6f,", a.points[0].Time, a.points[0].Value)
	for i := 0; i < len(a.points)-1; i++ {
		p0, p1 := a.points[i], a.points[i+1]
		fmt.Fprintf(&b, "if(lte(t,%.6f),%.6f+(t-%.6f)/%.6f*(%.6f),",
			p1.Time, p0.Value, p0.Time, p1.Time-p0.Time, p1.Value-p0.Value)
	}
	fmt.Fprintf(&b, "%.6f", a.points[len(a.points)-1].Value)
	// по одному if на сегмент плюс начальное удержание
	b.WriteString(strings.Repeat(")", len(a.points)))
	return b.String()
}

// Constant сообщает, везде ли у кривой одно значение.
func (a *Automation) Constant() (float64, bool) {
	if len(a.points) == 0 {
		return 1, true
	}
	v := a.points[0].Value
	for _, p := range a.points[1:] {
		if math.Abs(p.Value-v) > collinearEps {
			return 0, false
		}
	}
	return v, true
}
