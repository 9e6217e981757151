package viewer

import (
	"sync"

	"github.com/tapiab/heimdall-sub000/log"

	"go.uber.org/zap"
)

// 图层注册表：按id持有全部图层的渲染配置和叠放次序，是配置的唯一权威。
// 配置变更通过dirty信号对外广播，注册表自身不触发任何渲染。
type LayerRegistry struct {
	mu     sync.RWMutex
	layers map[string]*Layer
	order  []string // 索引0为最顶层
	subs   []func(layerID string)
	logTag string
}

func NewLayerRegistry() *LayerRegistry {
	return &LayerRegistry{
		layers: map[string]*Layer{},
		logTag: "LayerRegistry:",
	}
}

// 订阅图层失效信号；结构性变更（删除、排序）以空id广播
func (r *LayerRegistry) Subscribe(fn func(layerID string)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.subs = append(r.subs, fn)
	r.mu.Unlock()
}

func (r *LayerRegistry) notify(id string) {
	r.mu.RLock()
	subs := make([]func(string), len(r.subs))
	copy(subs, r.subs)
	r.mu.RUnlock()
	for _, fn := range subs {
		fn(id)
	}
}

// 新图层置于叠放次序顶端
func (r *LayerRegistry) Register(l Layer) (err error) {
	r.mu.Lock()
	if _, ok := r.layers[l.ID]; ok {
		r.mu.Unlock()
		return ErrDuplicateLayerID
	}
	if l.Kind == KindRaster {
		if l.Band < 1 || l.Band > l.BandCount {
			l.Band = 1
		}
		if l.Stretch == (Stretch{}) {
			l.Stretch = l.statsStretch(l.Band)
		}
		if l.RGBBands == (RGBBands{}) {
			if l.BandCount >= 3 {
				l.RGBBands = RGBBands{R: 1, G: 2, B: 3}
			} else {
				l.RGBBands = RGBBands{R: 1, G: 1, B: 1}
			}
		}
	}
	stored := l.clone()
	r.layers[l.ID] = &stored
	r.order = append([]string{l.ID}, r.order...)
	r.mu.Unlock()
	log.Info(r.logTag+"layer registered", zap.String("id", l.ID), zap.String("kind", l.Kind.String()))
	r.notify(l.ID)
	return
}

// 幂等删除；同时清理其他图层中指向该id的跨图层来源
func (r *LayerRegistry) Remove(id string) {
	r.mu.Lock()
	if _, ok := r.layers[id]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.layers, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	var scrubbed []string
	for _, l := range r.layers {
		if l.Sources.references(id) {
			l.Sources = nil
			scrubbed = append(scrubbed, l.ID)
		}
	}
	r.mu.Unlock()
	log.Info(r.logTag+"layer removed", zap.String("id", id), zap.Strings("scrubbed", scrubbed))
	r.notify("")
	for _, sid := range scrubbed {
		r.notify(sid)
	}
}

// 叠放次序内移动单个元素，越界索引收拢到边界
func (r *LayerRegistry) Reorder(from, to int) {
	r.mu.Lock()
	n := len(r.order)
	if n == 0 {
		r.mu.Unlock()
		return
	}
	from = clampIndex(from, n)
	to = clampIndex(to, n)
	if from == to {
		r.mu.Unlock()
		return
	}
	id := r.order[from]
	r.order = append(r.order[:from], r.order[from+1:]...)
	rest := append([]string{}, r.order[to:]...)
	r.order = append(append(r.order[:to:to], id), rest...)
	r.mu.Unlock()
	r.notify("")
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// 返回图层配置快照
func (r *LayerRegistry) Get(id string) (l Layer, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.layers[id]
	if ok {
		l = p.clone()
	}
	return
}

// 自顶向下的图层id列表
func (r *LayerRegistry) Order() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *LayerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func (r *LayerRegistry) SetDisplayMode(id string, mode DisplayMode) (err error) {
	if mode != ModeGrayscale && mode != ModeRGB && mode != ModeCrossLayerRGB {
		return ErrInvalidDisplayMode
	}
	return r.mutate(id, func(l *Layer) error {
		l.Mode = mode
		return nil
	})
}

func (r *LayerRegistry) SetBand(id string, band int) (err error) {
	return r.mutate(id, func(l *Layer) error {
		if band < 1 || band > l.BandCount {
			return ErrBandOutOfRange
		}
		l.Band = band
		return nil
	})
}

func (r *LayerRegistry) SetStretch(id string, min, max, gamma float64) (err error) {
	return r.mutate(id, func(l *Layer) error {
		if gamma <= 0 {
			gamma = DEFAULT_GAMMA
		}
		l.Stretch = Stretch{Min: min, Max: max, Gamma: gamma}
		return nil
	})
}

func (r *LayerRegistry) SetRGBBands(id string, bands RGBBands) (err error) {
	return r.mutate(id, func(l *Layer) error {
		for _, b := range [3]int{bands.R, bands.G, bands.B} {
			if b < 1 || b > l.BandCount {
				return ErrBandOutOfRange
			}
		}
		l.RGBBands = bands
		return nil
	})
}

func (r *LayerRegistry) SetRGBStretch(id string, st RGBStretch) (err error) {
	return r.mutate(id, func(l *Layer) error {
		for _, s := range [3]*Stretch{&st.R, &st.G, &st.B} {
			if s.Gamma <= 0 {
				s.Gamma = DEFAULT_GAMMA
			}
		}
		l.RGBStretch = st
		return nil
	})
}

// 来源图层允许此刻不存在（悬空引用在取瓦片时兜底），但波段号必须为正
func (r *LayerRegistry) SetCrossLayerSources(id string, src *CrossLayerSources) (err error) {
	return r.mutate(id, func(l *Layer) error {
		if src != nil {
			if src.RBand < 1 || src.GBand < 1 || src.BBand < 1 {
				return ErrBandOutOfRange
			}
			cp := *src
			l.Sources = &cp
		} else {
			l.Sources = nil
		}
		return nil
	})
}

func (r *LayerRegistry) mutate(id string, fn func(l *Layer) error) (err error) {
	r.mu.Lock()
	l, ok := r.layers[id]
	if !ok {
		r.mu.Unlock()
		return ErrLayerNotFound
	}
	if l.Kind != KindRaster {
		r.mu.Unlock()
		return ErrNotRasterLayer
	}
	err = fn(l)
	r.mu.Unlock()
	if err != nil {
		log.Warn(r.logTag+"config rejected", zap.String("id", id), zap.Error(err))
		return
	}
	r.notify(id)
	return
}
