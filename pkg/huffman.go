package hcalreco

// Compressed frames carry Huffman-coded differences between consecutive ADC
// values. A reserved code escapes to a 12-bit literal for jumps outside the
// table.
const huffmanEscape int32 = 123456

type HuffmanNode struct {
	NextNodes [2]*HuffmanNode
	Value     int32
}

func NewHuffmanTree() *HuffmanNode {
	return &HuffmanNode{NextNodes: [2]*HuffmanNode{nil, nil}}
}

// Insert adds one value with its code ("0"/"1" string, MSB first).
func (h *HuffmanNode) Insert(value int32, code string) {
	currentNode := h
	for bitcount := 0; bitcount < len(code); bitcount++ {
		bit := code[bitcount] - 0x30 // ascii to int
		if currentNode.NextNodes[bit] != nil {
			currentNode = currentNode.NextNodes[bit]
		} else {
			newNode := NewHuffmanTree()
			currentNode.NextNodes[bit] = newNode
			currentNode = newNode
		}
	}
	currentNode.Value = value
}

// decodeValue reads one symbol starting at startBit of the 32-bit word and
// applies it to the previous sample value. startBit is moved to the new
// position. An escape symbol is followed by a 12-bit literal.
func (h *HuffmanNode) decodeValue(previousValue int32, data uint32, startBit *int) int32 {
	currentBit := *startBit

	var value int32
	currentBit = h.walk(data, currentBit, &value)

	if value == huffmanEscape {
		value = (int32(data) >> (currentBit - 11)) & 0x0FFF
		currentBit -= 12
	} else {
		value = previousValue + value
	}
	*startBit = currentBit

	return value
}

func (h *HuffmanNode) walk(code uint32, position int, result *int32) int {
	bit := (code >> position) & 0x01

	finalPos := position
	if (h.NextNodes[0] == nil) && (h.NextNodes[1] == nil) {
		*result = h.Value
	} else {
		finalPos = h.NextNodes[bit].walk(code, position-1, result)
	}
	return finalPos
}

// decodeCompressedSamples expands nsamples ADC values from the 16-bit word
// stream. Words are packed in pairs into 32-bit chunks, consumed MSB first.
func decodeCompressedSamples(data []uint16, nsamples int, huffman *HuffmanNode) []uint8 {
	samples := make([]uint8, nsamples)
	position := 0
	currentBit := 31
	var previous int32

	for i := 0; i < nsamples; i++ {
		if currentBit < 16 {
			position++
			currentBit += 16
		}
		// Pack two 16-bit words into a 32-bit word in the correct order
		dataword := (uint32(data[position]) << 16) | uint32(data[position+1])

		value := huffman.decodeValue(previous, dataword, &currentBit)
		previous = value

		if value < 0 {
			value = 0
		}
		if value > 0xFF {
			value = 0xFF
		}
		samples[i] = uint8(value)
	}

	return samples
}
