package train

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/ChizhovVadim/CounterZero/internal/ml"
)

var errBadWeightFile = errors.New("bad weight file")

type Topology struct {
	Inputs        uint32
	Outputs       uint32
	HiddenNeurons []uint32
}

func (t *Topology) LayerSize() int {
	return len(t.HiddenNeurons) + 2
}

// networkFile is the serialized form of a policy/value network.
type networkFile struct {
	Id       uint32
	Topology Topology
	Weights  []ml.Matrix
	Biases   []ml.Matrix
}

// Binary specification for the weight file:
// - All the data is stored in little-endian layout
// - All the matrices are written in column-major
// - The magic number/version consists of 4 bytes (int32):
//   - 66 (which is the ASCII code for B), uint8
//   - 90 (which is the ASCII code for Z), uint8
//   - 2 The major part of the current version number, uint8
//   - 1 The minor part of the current version number, uint8 (two output heads)
//
// - 4 bytes (int32) to denote the network ID
// - 4 bytes (int32) to denote input size
// - 4 bytes (int32) to denote output size (policy size + 1)
// - 4 bytes (int32) number to represent the number of hidden layers
// - 4 bytes (int32) for the size of each hidden layer
// - All weights for a layer, followed by all the biases of the same layer
// - Hidden layers follow, then the policy head, then the value head
func (n *networkFile) Save(file string) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	defer f.Close()
	var w = bufio.NewWriter(f)

	// Write headers
	buf := []byte{66, 90, 2, 1}
	_, err = w.Write(buf)
	if err != nil {
		return err
	}

	// Write network Id
	binary.LittleEndian.PutUint32(buf, n.Id)
	_, err = w.Write(buf)
	if err != nil {
		return err
	}

	// Write Topology
	buf = make([]byte, 3*4+4*len(n.Topology.HiddenNeurons))
	binary.LittleEndian.PutUint32(buf[0:], n.Topology.Inputs)
	binary.LittleEndian.PutUint32(buf[4:], n.Topology.Outputs)
	binary.LittleEndian.PutUint32(buf[8:], uint32(len(n.Topology.HiddenNeurons)))
	for i := 0; i < len(n.Topology.HiddenNeurons); i++ {
		binary.LittleEndian.PutUint32(buf[12+4*i:], n.Topology.HiddenNeurons[i])
	}
	_, err = w.Write(buf)
	if err != nil {
		return err
	}

	var layerSize = n.Topology.LayerSize()
	for i := 0; i < layerSize; i++ {
		err = writeSlice(w, n.Weights[i].Data)
		if err != nil {
			return err
		}
		err = writeSlice(w, n.Biases[i].Data)
		if err != nil {
			return err
		}
	}

	err = w.Flush()
	if err != nil {
		return err
	}
	return f.Close()
}

func loadNetworkFile(path string) (networkFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return networkFile{}, err
	}
	defer f.Close()
	var r = bufio.NewReader(f)

	// Read headers
	buf := make([]byte, 4)
	_, err = io.ReadFull(r, buf)
	if err != nil {
		return networkFile{}, err
	}
	if buf[0] != 66 || buf[1] != 90 {
		return networkFile{}, fmt.Errorf("%w: magic word does not match", errBadWeightFile)
	}
	if buf[2] != 2 || buf[3] != 1 {
		return networkFile{}, fmt.Errorf("%w: version %v.%v is not supported", errBadWeightFile, buf[2], buf[3])
	}

	_, err = io.ReadFull(r, buf)
	if err != nil {
		return networkFile{}, err
	}
	id := binary.LittleEndian.Uint32(buf)

	// Read Topology Header
	buf = make([]byte, 12)
	_, err = io.ReadFull(r, buf)
	if err != nil {
		return networkFile{}, err
	}
	inputs := binary.LittleEndian.Uint32(buf[:4])
	outputs := binary.LittleEndian.Uint32(buf[4:8])
	layers := binary.LittleEndian.Uint32(buf[8:])
	if outputs < 2 || layers > 16 {
		return networkFile{}, fmt.Errorf("%w: outputs %v layers %v", errBadWeightFile, outputs, layers)
	}

	buf = make([]byte, 4*layers)
	_, err = io.ReadFull(r, buf)
	if err != nil {
		return networkFile{}, err
	}
	neurons := make([]uint32, layers)
	for i := uint32(0); i < layers; i++ {
		neurons[i] = binary.LittleEndian.Uint32(buf[i*4 : (i+1)*4])
	}

	net := networkFile{
		Id: id,
		Topology: Topology{
			Inputs:        inputs,
			Outputs:       outputs,
			HiddenNeurons: neurons,
		},
	}

	var layerSize = net.Topology.LayerSize()
	net.Weights = make([]ml.Matrix, layerSize)
	net.Biases = make([]ml.Matrix, layerSize)

	inputSize := int(inputs)
	for i := 0; i < layerSize; i++ {
		var outputSize int
		switch {
		case i < len(neurons):
			outputSize = int(neurons[i])
		case i == len(neurons):
			outputSize = int(outputs) - 1
		default:
			outputSize = 1
		}
		net.Weights[i] = ml.NewMatrix(outputSize, inputSize)
		err = readSlice(r, net.Weights[i].Data)
		if err != nil {
			return networkFile{}, err
		}
		net.Biases[i] = ml.NewMatrix(outputSize, 1)
		err = readSlice(r, net.Biases[i].Data)
		if err != nil {
			return networkFile{}, err
		}
		if i < len(neurons) {
			inputSize = outputSize
		}
	}
	return net, nil
}

func writeSlice(w io.Writer, data []float64) error {
	buf := make([]byte, 4)
	for j := range data {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(data[j])))
		_, err := w.Write(buf)
		if err != nil {
			return err
		}
	}
	return nil
}

func readSlice(r io.Reader, data []float64) error {
	buf := make([]byte, 4)
	for j := range data {
		_, err := io.ReadFull(r, buf)
		if err != nil {
			return err
		}
		data[j] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf)))
	}
	return nil
}
