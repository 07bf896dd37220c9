package workbench

// Player tracks the audio playback cursor of a session. It holds no audio
// itself; the browser plays the file and this state drives the canvas cursor
// and the listen-to-annotation stop point.
type Player struct {
	duration float64
	position float64
	playing  bool
	stopAt   *float64
}

func NewPlayer(duration float64) *Player {
	return &Player{duration: duration}
}

func (p *Player) Position() float64 { return p.position }
func (p *Player) Playing() bool     { return p.playing }

func (p *Player) Play()  { p.playing = true }
func (p *Player) Pause() { p.playing = false }

func (p *Player) Toggle() {
	p.playing = !p.playing
}

// Seek moves the cursor, clamped to the file bounds, and disarms any pending
// stop point.
func (p *Player) Seek(t float64) {
	if t < 0 {
		t = 0
	}
	if t > p.duration {
		t = p.duration
	}
	p.position = t
	p.stopAt = nil
}

// ArmStop makes playback pause automatically when the cursor reaches t. Used
// when listening to a single annotation's extent.
func (p *Player) ArmStop(t float64) {
	stop := t
	p.stopAt = &stop
}

// Tick advances the cursor by dt seconds. It returns true when the cursor
// moved. Reaching the armed stop point or the end of the file pauses.
func (p *Player) Tick(dt float64) bool {
	if !p.playing || dt <= 0 {
		return false
	}
	p.position += dt
	if p.stopAt != nil && p.position >= *p.stopAt {
		p.position = *p.stopAt
		p.stopAt = nil
		p.playing = false
	}
	if p.position >= p.duration {
		p.position = p.duration
		p.playing = false
	}
	return true
}
