package inference

import (
	"context"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXLoader loads a serialized ONNX graph through ONNX Runtime.
// Input and output names are read from the graph, never hardcoded.
type ONNXLoader struct {
	ModelPath string
	// SharedLibraryPath points at libonnxruntime; empty uses the platform default
	SharedLibraryPath string
}

var runtimeEnv struct {
	sync.Mutex
	initialised bool
}

func initEnvironment(libPath string) error {
	runtimeEnv.Lock()
	defer runtimeEnv.Unlock()

	if runtimeEnv.initialised || ort.IsInitialized() {
		runtimeEnv.initialised = true
		return nil
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}
	runtimeEnv.initialised = true
	return nil
}

// ShutdownRuntime releases the ONNX Runtime environment. Call it after
// every Host using an ONNXLoader has been closed.
func ShutdownRuntime() error {
	runtimeEnv.Lock()
	defer runtimeEnv.Unlock()

	if !runtimeEnv.initialised {
		return nil
	}
	runtimeEnv.initialised = false
	return ort.DestroyEnvironment()
}

// Load implements Loader
func (l *ONNXLoader) Load(ctx context.Context) (Session, error) {
	if _, err := os.Stat(l.ModelPath); err != nil {
		return nil, fmt.Errorf("model asset unavailable: %w", err)
	}

	if err := initEnvironment(l.SharedLibraryPath); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(l.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph inputs/outputs: %w", err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("graph declares %d inputs, expected exactly 1", len(inputs))
	}
	if len(outputs) < 1 {
		return nil, fmt.Errorf("graph declares no outputs")
	}

	input, output := inputs[0], outputs[0]

	session, err := ort.NewDynamicAdvancedSession(l.ModelPath,
		[]string{input.Name}, []string{output.Name}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &onnxSession{
		session:    session,
		inputName:  input.Name,
		outputName: output.Name,
	}, nil
}

type onnxSession struct {
	session    *ort.DynamicAdvancedSession
	inputName  string
	outputName string
}

func (s *onnxSession) InputName() string  { return s.inputName }
func (s *onnxSession) OutputName() string { return s.outputName }

// SupportsConcurrentRun is true: ONNX Runtime documents Run as thread-safe
// and every call below owns its own input and output tensors.
func (s *onnxSession) SupportsConcurrentRun() bool { return true }

func (s *onnxSession) Run(input []float32, shape []int64) ([]float32, error) {
	inputTensor, err := ort.NewTensor(ort.NewShape(shape...), input)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	// a nil output is allocated by the runtime with whatever shape the
	// graph produces
	outputs := []ort.ArbitraryTensor{nil}
	if err := s.session.Run([]ort.ArbitraryTensor{inputTensor}, outputs); err != nil {
		return nil, err
	}
	if outputs[0] == nil {
		return nil, fmt.Errorf("graph produced no %q output", s.outputName)
	}
	defer outputs[0].Destroy()

	return float32Output(outputs[0])
}

// float32Output copies the data of a runtime-allocated output tensor
func float32Output(t ort.ArbitraryTensor) ([]float32, error) {
	typed, ok := t.(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("output tensor is %T, expected float32 data", t)
	}
	data := typed.GetData()
	out := make([]float32, len(data))
	copy(out, data)
	return out, nil
}

func (s *onnxSession) Close() error {
	if err := s.session.Destroy(); err != nil {
		return fmt.Errorf("failed to destroy ONNX session: %w", err)
	}
	return nil
}
