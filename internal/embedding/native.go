package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/buckhx/gobert/tokenize"
	"github.com/buckhx/gobert/tokenize/vocab"
	"github.com/gomlx/go-huggingface/hub"
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	mlcontext "github.com/gomlx/gomlx/pkg/ml/context"

	"github.com/gomlx/onnx-gomlx/onnx"

	"github.com/ermiller24/executive-layer/internal/types"
)

// Singleton for the native provider - the GoMLX backend should only be
// initialized once per process.
var (
	nativeInstance *NativeProvider
	nativeOnce     sync.Once
	nativeErr      error
)

// nativeModelDim is the hidden size of all-MiniLM-L6-v2.
const nativeModelDim = 384

// NativeProvider runs all-MiniLM-L6-v2 locally via GoMLX for embedding
// generation. It requires no external API after the initial model download.
//
// Model details:
//   - Architecture: all-MiniLM-L6-v2 (sentence-transformers/all-MiniLM-L6-v2)
//   - Native output: 384-dimensional float vectors
//   - Backend: XLA/PJRT via GoMLX
//   - Tokenizer: BERT WordPiece via gobert
//
// The raw 384-entry model output is adapted to the configured dimension:
// truncated or zero-padded, with NaN entries coerced to 0. All methods are
// safe for concurrent use.
type NativeProvider struct {
	model     *onnx.Model
	ctx       *mlcontext.Context
	backend   backends.Backend
	tokenizer tokenize.FeatureFactory
	dim       int
	mu        sync.RWMutex
}

// NewNativeProvider creates or returns the singleton native provider. The
// model and vocabulary are downloaded from HuggingFace on first use and
// cached under ~/.cache/huggingface/.
//
// Initialization is lazy and idempotent: the first call warms the model, all
// callers receive the same instance. dim is the target vector dimension D.
func NewNativeProvider(dim int) (*NativeProvider, error) {
	if dim <= 0 {
		return nil, types.NewError(ErrCodeInvalidConfig,
			fmt.Sprintf("embedding dimension must be positive, got %d", dim))
	}

	nativeOnce.Do(func() {
		backend, err := backends.New()
		if err != nil {
			nativeErr = types.WrapError(ErrCodeEmbedderUnavailable,
				"failed to initialize GoMLX backend", err)
			return
		}

		modelRepo := hub.New("sentence-transformers/all-MiniLM-L6-v2")

		modelPath, err := modelRepo.DownloadFile("onnx/model.onnx")
		if err != nil {
			nativeErr = types.WrapError(ErrCodeEmbedderUnavailable,
				"failed to download all-MiniLM-L6-v2 model from HuggingFace", err)
			return
		}

		model, err := onnx.ReadFile(modelPath)
		if err != nil {
			nativeErr = types.WrapError(ErrCodeEmbedderUnavailable,
				fmt.Sprintf("failed to load ONNX model from %s", modelPath), err)
			return
		}

		mlctx := mlcontext.New()
		if err := model.VariablesToContext(mlctx); err != nil {
			nativeErr = types.WrapError(ErrCodeEmbedderUnavailable,
				"failed to extract model variables to context", err)
			return
		}

		vocabPath, err := modelRepo.DownloadFile("vocab.txt")
		if err != nil {
			nativeErr = types.WrapError(ErrCodeEmbedderUnavailable,
				"failed to download vocabulary from HuggingFace", err)
			return
		}

		vocabDict, err := vocab.FromFile(vocabPath)
		if err != nil {
			nativeErr = types.WrapError(ErrCodeEmbedderUnavailable,
				fmt.Sprintf("failed to load vocabulary from %s", vocabPath), err)
			return
		}

		bertTokenizer := tokenize.NewTokenizer(vocabDict,
			tokenize.WithLower(true),
			tokenize.WithUnknownToken("[UNK]"))

		featureFactory := tokenize.FeatureFactory{
			Tokenizer: bertTokenizer,
			SeqLen:    256,
		}

		nativeInstance = &NativeProvider{
			model:     model,
			ctx:       mlctx,
			backend:   backend,
			tokenizer: featureFactory,
		}
	})

	if nativeErr != nil {
		return nil, nativeErr
	}

	// The singleton is shared; the dimension is fixed by the first caller.
	nativeInstance.mu.Lock()
	if nativeInstance.dim == 0 {
		nativeInstance.dim = dim
	}
	nativeInstance.mu.Unlock()

	return nativeInstance, nil
}

// Embed generates an embedding vector for a single text. The text is
// tokenized, passed through the transformer, mean-pooled over non-padding
// tokens, and adapted to the configured dimension.
func (p *NativeProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, types.WrapError(ErrCodeEmbeddingFailed, "context canceled", err)
	}

	feature := p.tokenizer.Feature(text)
	if len(feature.TokenIDs) == 0 {
		return nil, types.NewError(ErrCodeEmbeddingFailed,
			"tokenization failed: no tokens produced")
	}

	// The tokenizer produces int32, but the ONNX model expects int64.
	inputIDs := make([]int64, len(feature.TokenIDs))
	attentionMask := make([]int64, len(feature.Mask))
	tokenTypeIDs := make([]int64, len(feature.TypeIDs))
	for i := range feature.TokenIDs {
		inputIDs[i] = int64(feature.TokenIDs[i])
		attentionMask[i] = int64(feature.Mask[i])
		tokenTypeIDs[i] = int64(feature.TypeIDs[i])
	}

	batchInputIDs := [][]int64{inputIDs}
	batchAttentionMask := [][]int64{attentionMask}
	batchTokenTypeIDs := [][]int64{tokenTypeIDs}

	// The model returns last_hidden_state with shape [1, seq_len, hidden].
	// Mean pooling over the masked token axis yields [1, hidden].
	result, err := mlcontext.ExecOnce(p.backend, p.ctx, func(mlctx *mlcontext.Context, inputs []*graph.Node) *graph.Node {
		g := inputs[0].Graph()

		outputs := p.model.CallGraph(mlctx, g, map[string]*graph.Node{
			"input_ids":      inputs[0],
			"attention_mask": inputs[1],
			"token_type_ids": inputs[2],
		}, "last_hidden_state")

		lastHiddenState := outputs[0]

		attentionMaskExpanded := graph.ExpandDims(inputs[1], -1)
		attentionMaskExpanded = graph.ConvertType(attentionMaskExpanded, lastHiddenState.DType())

		maskedHiddenState := graph.Mul(lastHiddenState, attentionMaskExpanded)
		sumHiddenState := graph.ReduceSum(maskedHiddenState, 1)

		sumMask := graph.ReduceSum(attentionMaskExpanded, 1)
		sumMask = graph.Add(sumMask, graph.Const(g, float32(1e-9)))

		return graph.Div(sumHiddenState, sumMask)
	}, batchInputIDs, batchAttentionMask, batchTokenTypeIDs)

	if err != nil {
		return nil, types.WrapError(ErrCodeEmbeddingFailed,
			"GoMLX graph execution failed", err)
	}

	raw, err := tensorToFloat64Slice(result)
	if err != nil {
		return nil, types.WrapError(ErrCodeEmbeddingFailed,
			"failed to read embedding tensor", err)
	}
	if len(raw) != nativeModelDim {
		return nil, types.NewError(ErrCodeEmbeddingFailed,
			fmt.Sprintf("unexpected embedding dimension: got %d, want %d", len(raw), nativeModelDim))
	}

	return AdaptVector(raw, p.Dimensions()), nil
}

// tensorToFloat64Slice converts a GoMLX tensor of shape [1, N] to []float64.
func tensorToFloat64Slice(tensor *tensors.Tensor) ([]float64, error) {
	shape := tensor.Shape()
	if shape.Rank() != 2 || shape.Dimensions[0] != 1 {
		return nil, fmt.Errorf("expected shape [1, N], got %v", shape)
	}

	dims := shape.Dimensions[1]
	result := make([]float64, dims)

	switch tensor.DType() {
	case dtypes.Float32:
		data, err := tensors.CopyFlatData[float32](tensor)
		if err != nil {
			return nil, fmt.Errorf("failed to copy tensor data: %w", err)
		}
		for i := 0; i < dims; i++ {
			result[i] = float64(data[i])
		}
	case dtypes.Float64:
		data, err := tensors.CopyFlatData[float64](tensor)
		if err != nil {
			return nil, fmt.Errorf("failed to copy tensor data: %w", err)
		}
		copy(result, data)
	default:
		return nil, fmt.Errorf("unsupported tensor dtype: %v", tensor.DType())
	}

	return result, nil
}

// Dimensions returns the configured vector dimension D.
func (p *NativeProvider) Dimensions() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.dim == 0 {
		return nativeModelDim
	}
	return p.dim
}

// Model returns the name of the embedding model.
func (p *NativeProvider) Model() string {
	return "all-MiniLM-L6-v2"
}

// Health checks if the provider is operational by generating a test embedding.
func (p *NativeProvider) Health(ctx context.Context) types.HealthStatus {
	healthCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := p.Embed(healthCtx, "health check"); err != nil {
		return types.NewHealthStatus(types.HealthStateDegraded,
			fmt.Sprintf("native embedder failed health check: %v", err))
	}

	return types.NewHealthStatus(types.HealthStateHealthy,
		"native embedder operational (all-MiniLM-L6-v2 via GoMLX)")
}
