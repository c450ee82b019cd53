package embed

import (
	"context"
	"fmt"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNXOptions locates a sentence-transformer exported to ONNX
type ONNXOptions struct {
	Model         string // Reported model id
	LibraryPath   string // onnxruntime shared library
	ModelPath     string // model.onnx
	TokenizerPath string // tokenizer.json
	MaxSeqLen     int
}

// ONNXEncoder runs a local transformer and mean-pools its last hidden state
type ONNXEncoder struct {
	model     string
	tk        *tokenizer.Tokenizer
	session   *ort.DynamicAdvancedSession
	maxSeqLen int

	mu sync.Mutex // the session is not safe for concurrent Run calls
}

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// NewONNXEncoder loads the tokenizer and the model session
func NewONNXEncoder(opts ONNXOptions) (*ONNXEncoder, error) {
	if opts.ModelPath == "" || opts.TokenizerPath == "" {
		return nil, fmt.Errorf("onnx provider needs model_path and tokenizer_path")
	}
	if opts.MaxSeqLen <= 0 {
		opts.MaxSeqLen = 256
	}

	ortInitOnce.Do(func() {
		if opts.LibraryPath != "" {
			ort.SetSharedLibraryPath(opts.LibraryPath)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("initialize onnxruntime: %w", ortInitErr)
	}

	tk, err := pretrained.FromFile(opts.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(opts.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"}, nil)
	if err != nil {
		return nil, fmt.Errorf("load onnx model: %w", err)
	}

	return &ONNXEncoder{
		model:     opts.Model,
		tk:        tk,
		session:   session,
		maxSeqLen: opts.MaxSeqLen,
	}, nil
}

func (e *ONNXEncoder) ModelID() string {
	return "onnx:" + e.model
}

func (e *ONNXEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batch := len(texts)
	encoded := make([]*tokenizer.Encoding, batch)
	seqLen := 1
	for i, text := range texts {
		enc, err := e.tk.EncodeSingle(text, true)
		if err != nil {
			return nil, fmt.Errorf("tokenize %q: %w", text, err)
		}
		encoded[i] = enc
		if n := min(len(enc.Ids), e.maxSeqLen); n > seqLen {
			seqLen = n
		}
	}

	ids := make([]int64, batch*seqLen)
	mask := make([]int64, batch*seqLen)
	types := make([]int64, batch*seqLen)
	for b, enc := range encoded {
		n := min(len(enc.Ids), seqLen)
		for t := 0; t < n; t++ {
			off := b*seqLen + t
			ids[off] = int64(enc.Ids[t])
			mask[off] = 1
			if t < len(enc.TypeIds) {
				types[off] = int64(enc.TypeIds[t])
			}
			if t < len(enc.AttentionMask) {
				mask[off] = int64(enc.AttentionMask[t])
			}
		}
		// keep the trailing separator when truncating
		if len(enc.Ids) > seqLen {
			ids[b*seqLen+seqLen-1] = int64(enc.Ids[len(enc.Ids)-1])
		}
	}

	shape := ort.NewShape(int64(batch), int64(seqLen))
	idsT, err := ort.NewTensor(shape, ids)
	if err != nil {
		return nil, fmt.Errorf("input_ids tensor: %w", err)
	}
	defer idsT.Destroy()
	maskT, err := ort.NewTensor(shape, mask)
	if err != nil {
		return nil, fmt.Errorf("attention_mask tensor: %w", err)
	}
	defer maskT.Destroy()
	typesT, err := ort.NewTensor(shape, types)
	if err != nil {
		return nil, fmt.Errorf("token_type_ids tensor: %w", err)
	}
	defer typesT.Destroy()

	outputs := []ort.Value{nil}
	e.mu.Lock()
	err = e.session.Run([]ort.Value{idsT, maskT, typesT}, outputs)
	e.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}
	defer outputs[0].Destroy()

	hidden, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output type %T", outputs[0])
	}
	dims := hidden.GetShape()
	if len(dims) != 3 || dims[0] != int64(batch) || dims[1] != int64(seqLen) {
		return nil, fmt.Errorf("unexpected output shape %v", dims)
	}
	return meanPool(hidden.GetData(), mask, batch, seqLen, int(dims[2])), nil
}

// meanPool averages token vectors weighted by the attention mask
func meanPool(hidden []float32, mask []int64, batch, seqLen, dim int) [][]float32 {
	out := make([][]float32, batch)
	for b := 0; b < batch; b++ {
		vec := make([]float32, dim)
		var count float32
		for t := 0; t < seqLen; t++ {
			if mask[b*seqLen+t] == 0 {
				continue
			}
			count++
			row := hidden[(b*seqLen+t)*dim : (b*seqLen+t+1)*dim]
			for d, x := range row {
				vec[d] += x
			}
		}
		if count > 0 {
			for d := range vec {
				vec[d] /= count
			}
		}
		out[b] = vec
	}
	return out
}

func (e *ONNXEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	e.session = nil
	return err
}
