package model

import (
	"fmt"

	"github.com/gorgonia/muzgo/game"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	nnops "gorgonia.org/gorgonia/ops/nn"
	"gorgonia.org/tensor"
)

var Float = G.Float32

// DualConfig configures the graph-backed model.
type DualConfig struct {
	BoardSize int
	EmbedDim  int
	Filters   int // convolution filter count of the embedding trunk
	ChunkSize int // fixed batch size of the compiled graphs
}

func (c DualConfig) IsValid() bool {
	return c.BoardSize >= 1 && c.EmbedDim >= 1 && c.Filters >= 1 && c.ChunkSize >= 1
}

// Dual is a gorgonia graph-backed model: a small convolutional embedding
// trunk with one linear layer per head, compiled forward-only at a fixed
// batch size. Calls with larger batches are fed in zero-padded chunks.
// A Dual's heads share tape machines and are not safe for concurrent use;
// the pipeline is strictly sequential, so this matches its contract.
type Dual struct {
	conf DualConfig

	embed      *headGraph
	value      *headGraph
	policy     *headGraph
	transition *headGraph
	area       *headGraph
}

// NewDual builds the five graphs and returns the model bundle with a
// freshly initialised parameter blob.
func NewDual(conf DualConfig) (Model, error) {
	if !conf.IsValid() {
		return Model{}, errors.Errorf("invalid config %+v", conf)
	}
	d := &Dual{conf: conf}
	b := conf.BoardSize
	space := game.ActionSpace(b)

	var err error
	if d.embed, err = d.buildEmbed(); err != nil {
		return Model{}, errors.WithMessage(err, "building embed graph")
	}
	if d.value, err = d.buildHead("value", 1, tensor.Shape{conf.ChunkSize}); err != nil {
		return Model{}, errors.WithMessage(err, "building value graph")
	}
	if d.policy, err = d.buildHead("policy", space, tensor.Shape{conf.ChunkSize, space}); err != nil {
		return Model{}, errors.WithMessage(err, "building policy graph")
	}
	if d.transition, err = d.buildHead("transition", space*conf.EmbedDim, tensor.Shape{conf.ChunkSize, space, conf.EmbedDim}); err != nil {
		return Model{}, errors.WithMessage(err, "building transition graph")
	}
	if d.area, err = d.buildHead("area", 2*b*b, tensor.Shape{conf.ChunkSize, 2, b, b}); err != nil {
		return Model{}, errors.WithMessage(err, "building area graph")
	}

	params := Params{}
	for _, h := range []*headGraph{d.embed, d.value, d.policy, d.transition, d.area} {
		h.export(params)
	}

	return Model{
		BoardSize: b,
		EmbedDim:  conf.EmbedDim,
		Params:    params,

		Embed: func(p Params, st State, states *game.States) (*tensor.Dense, State, error) {
			out, err := d.embed.run(p, states.Data(), states.Batch(), tensor.Shape{states.Batch(), conf.EmbedDim})
			return out, st, err
		},
		Value: func(p Params, st State, embeds *tensor.Dense) (*tensor.Dense, State, error) {
			batch := embeds.Shape()[0]
			out, err := d.value.run(p, embeds.Data().([]float32), batch, tensor.Shape{batch})
			return out, st, err
		},
		Policy: func(p Params, st State, embeds *tensor.Dense) (*tensor.Dense, State, error) {
			batch := embeds.Shape()[0]
			out, err := d.policy.run(p, embeds.Data().([]float32), batch, tensor.Shape{batch, space})
			return out, st, err
		},
		Transition: func(p Params, st State, embeds *tensor.Dense) (*tensor.Dense, State, error) {
			batch := embeds.Shape()[0]
			out, err := d.transition.run(p, embeds.Data().([]float32), batch, tensor.Shape{batch, space, conf.EmbedDim})
			return out, st, err
		},
		Area: func(p Params, st State, embeds *tensor.Dense) (*tensor.Dense, State, error) {
			batch := embeds.Shape()[0]
			out, err := d.area.run(p, embeds.Data().([]float32), batch, tensor.Shape{batch, 2, b, b})
			return out, st, err
		},
	}, nil
}

// headGraph is one compiled forward graph plus its tape machine.
type headGraph struct {
	name   string
	chunk  int
	inRow  int // input row width (flattened)
	outRow int // output row width (flattened)

	g          *G.ExprGraph
	input      *G.Node
	inputT     *tensor.Dense
	out        G.Value
	m          G.VM
	learnables G.Nodes
}

func (d *Dual) buildEmbed() (*headGraph, error) {
	conf := d.conf
	b := conf.BoardSize
	g := G.NewGraph()
	input := G.NewTensor(g, Float, 4, G.WithShape(conf.ChunkSize, game.NumPlanes, b, b), G.WithName("states"))

	var m maebe
	trunk := m.conv(input, conf.Filters, 3, "embed_trunk")
	trunk = m.rectify(trunk)
	flat := m.reshape(trunk, tensor.Shape{conf.ChunkSize, conf.Filters * b * b})
	embeds := m.linear(flat, conf.EmbedDim, "embed_out")
	if m.err != nil {
		return nil, m.err
	}

	h := &headGraph{
		name:   "embed",
		chunk:  conf.ChunkSize,
		inRow:  game.NumPlanes * b * b,
		outRow: conf.EmbedDim,
		g:      g,
		input:  input,
		inputT: tensor.New(tensor.Of(Float), tensor.WithShape(conf.ChunkSize, game.NumPlanes, b, b)),
	}
	G.Read(embeds, &h.out)
	h.finish()
	return h, nil
}

// buildHead compiles a single linear layer from embeddings to units
// outputs, reshaped to outShape.
func (d *Dual) buildHead(name string, units int, outShape tensor.Shape) (*headGraph, error) {
	conf := d.conf
	g := G.NewGraph()
	input := G.NewTensor(g, Float, 2, G.WithShape(conf.ChunkSize, conf.EmbedDim), G.WithName("embeds"))

	var m maebe
	out := m.linear(input, units, name)
	out = m.reshape(out, outShape)
	if m.err != nil {
		return nil, m.err
	}

	h := &headGraph{
		name:   name,
		chunk:  conf.ChunkSize,
		inRow:  conf.EmbedDim,
		outRow: units,
		g:      g,
		input:  input,
		inputT: tensor.New(tensor.Of(Float), tensor.WithShape(conf.ChunkSize, conf.EmbedDim)),
	}
	G.Read(out, &h.out)
	h.finish()
	return h, nil
}

func (h *headGraph) finish() {
	for _, n := range h.g.AllNodes() {
		if n.IsVar() && n != h.input {
			h.learnables = append(h.learnables, n)
		}
	}
	h.m = G.NewTapeMachine(h.g)
}

func (h *headGraph) key(n *G.Node) string { return fmt.Sprintf("dual/%s/%s", h.name, n.Name()) }

// export copies the freshly initialised weights into the blob.
func (h *headGraph) export(p Params) {
	for _, n := range h.learnables {
		v := n.Value().(*tensor.Dense)
		backing := make([]float32, len(v.Data().([]float32)))
		copy(backing, v.Data().([]float32))
		p[h.key(n)] = tensor.New(tensor.WithBacking(backing), tensor.WithShape(v.Shape().Clone()...))
	}
}

// run feeds rows of x through the graph in zero-padded chunks and gathers
// the output rows into a tensor of shape outShape.
func (h *headGraph) run(p Params, x []float32, rows int, outShape tensor.Shape) (*tensor.Dense, error) {
	if len(x) != rows*h.inRow {
		return nil, errors.Errorf("%s: input must be %d x %d, got %d values", h.name, rows, h.inRow, len(x))
	}
	out := make([]float32, rows*h.outRow)
	for start := 0; start < rows; start += h.chunk {
		n := rows - start
		if n > h.chunk {
			n = h.chunk
		}
		h.inputT.Zero()
		copy(h.inputT.Data().([]float32), x[start*h.inRow:(start+n)*h.inRow])

		h.m.Reset()
		for _, node := range h.learnables {
			v, ok := p[h.key(node)]
			if !ok {
				return nil, errors.Errorf("missing parameter %q", h.key(node))
			}
			if err := G.Let(node, v); err != nil {
				return nil, errors.Wrapf(err, "letting %q", h.key(node))
			}
		}
		if err := G.Let(h.input, h.inputT); err != nil {
			return nil, errors.Wrapf(err, "%s: letting input", h.name)
		}
		if err := h.m.RunAll(); err != nil {
			return nil, errors.Wrapf(err, "%s: running chunk at %d", h.name, start)
		}
		copy(out[start*h.outRow:], h.out.Data().([]float32)[:n*h.outRow])
	}
	return tensor.New(tensor.WithBacking(out), tensor.WithShape(outShape...)), nil
}

// Close releases the tape machines.
func (d *Dual) Close() error {
	for _, h := range []*headGraph{d.embed, d.value, d.policy, d.transition, d.area} {
		if h != nil && h.m != nil {
			if err := h.m.Close(); err != nil {
				return err
			}
		}
	}
	return nil
}

// maebe is a tiny error-accumulating graph builder.
type maebe struct {
	err error
}

func (m *maebe) do(f func() (*G.Node, error)) (retVal *G.Node) {
	if m.err != nil {
		return nil
	}
	if retVal, m.err = f(); m.err != nil {
		m.err = errors.WithStack(m.err)
	}
	return
}

func (m *maebe) conv(input *G.Node, filterCount, size int, name string) (retVal *G.Node) {
	if m.err != nil {
		return nil
	}
	featureCount := input.Shape()[1]
	pad := (size - 1) / 2
	filter := G.NewTensor(input.Graph(), Float, 4, G.WithShape(filterCount, featureCount, size, size), G.WithName(name+"_filter"), G.WithInit(G.GlorotU(1.0)))
	if retVal, m.err = nnops.Conv2d(input, filter, []int{size, size}, []int{pad, pad}, []int{1, 1}, []int{1, 1}); m.err != nil {
		m.err = errors.WithStack(m.err)
	}
	return
}

func (m *maebe) linear(input *G.Node, units int, name string) *G.Node {
	if m.err != nil {
		return nil
	}
	w := G.NewTensor(input.Graph(), Float, 2, G.WithShape(input.Shape()[1], units), G.WithInit(G.GlorotN(1.0)), G.WithName(name+"_w"))
	return m.do(func() (*G.Node, error) { return G.Mul(input, w) })
}

func (m *maebe) rectify(input *G.Node) (retVal *G.Node) {
	if m.err != nil {
		return nil
	}
	if retVal, m.err = nnops.Rectify(input); m.err != nil {
		m.err = errors.WithStack(m.err)
	}
	return
}

func (m *maebe) reshape(input *G.Node, to tensor.Shape) (retVal *G.Node) {
	if m.err != nil {
		return nil
	}
	if retVal, m.err = G.Reshape(input, to); m.err != nil {
		m.err = errors.WithStack(m.err)
	}
	return
}
