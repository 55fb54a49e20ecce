// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package inscriptions

import (
	"bytes"
	"errors"
	"math/big"
	"slices"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/ordtx/internal/sequencereader"
)

// ErrMalformedInscription defines that inscription is malformed and failed to parse.
var ErrMalformedInscription = errors.New("inscription is malformed")

// ErrRepeatedFieldData defines that already filled field met while parsing.
var ErrRepeatedFieldData = errors.New("field already filled")

// inscriptionOrdTag defines ord tag for inscription to disambiguate inscriptions from other uses of envelopes.
const inscriptionOrdTag string = "ord"

// maxBodyDataPushLen defines maximum size of the data push for bitcoin scripts.
const maxBodyDataPushLen int = txscript.MaxScriptElementSize

// maxScriptDataPushes defines maximum number of the data push of maxBodyDataPushLen size for one script builder.
const maxScriptDataPushes int = 19

// Inscription describes inscription type of the inscription protocol,
// which inscribe sats with arbitrary content, creating bitcoin-native digital artifacts.
type Inscription struct {
	ID              ID
	Body            []byte
	ContentEncoding string
	ContentType     string
	Delegate        *ID
	Metadata        []byte
	Metaprotocol    []byte
	Parents         []*ID
	Pointer         *big.Int
}

// scriptElement describes one tokenized script operation.
// Small integer opcodes are represented as pushes of their values.
type scriptElement struct {
	opcode byte
	data   []byte
	isPush bool
}

// isEmptyPush returns true for OP_0 (OP_FALSE).
func (e scriptElement) isEmptyPush() bool {
	return e.isPush && len(e.data) == 0
}

// tokenize splits script into elements.
func tokenize(script []byte) ([]scriptElement, error) {
	var (
		elements  []scriptElement
		tokenizer = txscript.MakeScriptTokenizer(0, script)
	)
	for tokenizer.Next() {
		element := scriptElement{opcode: tokenizer.Opcode(), isPush: true}
		switch op := tokenizer.Opcode(); {
		case op == txscript.OP_0:
			element.data = []byte{}
		case op >= txscript.OP_DATA_1 && op <= txscript.OP_PUSHDATA4:
			element.data = append([]byte{}, tokenizer.Data()...)
		case op == txscript.OP_1NEGATE:
			element.data = []byte{0x81}
		case op >= txscript.OP_1 && op <= txscript.OP_16:
			element.data = []byte{op - txscript.OP_1 + 1}
		default:
			element.isPush = false
		}

		elements = append(elements, element)
	}
	if err := tokenizer.Err(); err != nil {
		return nil, errors.Join(ErrMalformedInscription, err)
	}

	return elements, nil
}

// envelopeStart returns index of the first element after OP_FALSE OP_IF "ord" sequence.
func envelopeStart(elements []scriptElement) (int, bool) {
	for idx := 0; idx+2 < len(elements); idx++ {
		if elements[idx].isEmptyPush() &&
			elements[idx+1].opcode == txscript.OP_IF &&
			elements[idx+2].isPush && string(elements[idx+2].data) == inscriptionOrdTag {
			return idx + 3, true
		}
	}

	return 0, false
}

// IsPossibleInscriptionWitnessData returns true if witness data is possible to be parsed to inscription.
func IsPossibleInscriptionWitnessData(data []byte) bool {
	elements, err := tokenize(data)
	if err != nil {
		return false
	}

	start, ok := envelopeStart(elements)
	if !ok {
		return false
	}

	for _, element := range elements[start:] {
		if element.opcode == txscript.OP_ENDIF {
			return true
		}
	}

	return false
}

// ParseInscriptionFromTxWitness parses inscription from the tapscript of script path spend witness.
func ParseInscriptionFromTxWitness(witness wire.TxWitness) (*Inscription, error) {
	stack := witness
	// annex is the last element starting with 0x50 if there are at least two elements.
	if len(stack) >= 2 && len(stack[len(stack)-1]) > 0 && stack[len(stack)-1][0] == txscript.TaprootAnnexTag {
		stack = stack[:len(stack)-1]
	}

	if len(stack) < 2 {
		return nil, ErrMalformedInscription
	}

	return ParseInscriptionFromWitnessData(stack[len(stack)-2])
}

// ParseInscriptionFromWitnessData parses witness data into Inscription.
func ParseInscriptionFromWitnessData(data []byte) (*Inscription, error) {
	elements, err := tokenize(data)
	if err != nil {
		return nil, err
	}

	start, ok := envelopeStart(elements)
	if !ok {
		return nil, ErrMalformedInscription
	}

	sr := sequencereader.New[scriptElement](elements[start:])
	inscription := new(Inscription)
	for {
		tag, err := sr.Next()
		if err != nil {
			return nil, ErrMalformedInscription
		}

		switch {
		case tag.opcode == txscript.OP_ENDIF:
			return inscription, nil
		case tag.isEmptyPush(): // OP_0, means that all next data pushes are body parts.
			err = inscription.fillBody(sr)
			if err != nil {
				return nil, err
			}

			return inscription, nil
		case !tag.isPush || len(tag.data) != 1:
			return nil, ErrMalformedInscription
		}

		value, err := sr.Next()
		if err != nil || !value.isPush {
			return nil, ErrMalformedInscription
		}

		err = inscription.fillFieldByTag(Tag(tag.data[0]), value.data)
		if err != nil {
			return nil, err
		}
	}
}

// fillBody fills Body field with body data pushes up to OP_ENDIF.
func (i *Inscription) fillBody(sr *sequencereader.SequenceReader[scriptElement]) error {
	var body bytes.Buffer
	for {
		element, err := sr.Next()
		if err != nil {
			return ErrMalformedInscription
		}

		if element.opcode == txscript.OP_ENDIF {
			i.Body = body.Bytes()
			return nil
		}

		if !element.isPush {
			return ErrMalformedInscription
		}

		body.Write(element.data)
	}
}

// fillFieldByTag fills Inscription fields by provided tag.
func (i *Inscription) fillFieldByTag(tag Tag, value []byte) (err error) {
	switch tag {
	case TagContentType:
		if len(i.ContentType) != 0 {
			return ErrRepeatedFieldData
		}

		i.ContentType = string(value)
	case TagPointer:
		if i.Pointer != nil {
			return ErrRepeatedFieldData
		}

		i.Pointer = pointerFromLE(value)
	case TagParent:
		id, err := NewIDFromDataPush(value)
		if err != nil {
			return err
		}

		i.Parents = append(i.Parents, id)
	case TagMetadata:
		i.Metadata = append(i.Metadata, value...)
	case TagMetaprotocol:
		if len(i.Metaprotocol) != 0 {
			return ErrRepeatedFieldData
		}

		i.Metaprotocol = value
	case TagContentEncoding:
		if len(i.ContentEncoding) != 0 {
			return ErrRepeatedFieldData
		}

		i.ContentEncoding = string(value)
	case TagDelegate:
		if i.Delegate != nil {
			return ErrRepeatedFieldData
		}

		i.Delegate, err = NewIDFromDataPush(value)
		if err != nil {
			return err
		}
	case TagNote, TagNop, TagUnbound:
	default:
		if !tag.IsOdd() {
			return ErrMalformedInscription
		}
	}

	return nil
}

// IntoScript returns Inscription as a script.
func (i *Inscription) IntoScript() ([]byte, error) {
	scriptBuilder := txscript.NewScriptBuilder()

	// inscription protocol start.
	scriptBuilder.AddOp(txscript.OP_FALSE)
	scriptBuilder.AddOp(txscript.OP_IF)
	scriptBuilder.AddData([]byte(inscriptionOrdTag))

	// tags and content.
	if len(i.ContentType) != 0 {
		scriptBuilder.AddData(TagContentType.Bytes())
		scriptBuilder.AddData([]byte(i.ContentType))
	}

	if i.Pointer != nil {
		scriptBuilder.AddData(TagPointer.Bytes())
		scriptBuilder.AddData(pointerIntoLE(i.Pointer))
	}

	for _, parent := range i.Parents {
		scriptBuilder.AddData(TagParent.Bytes())
		scriptBuilder.AddData(parent.IntoDataPush())
	}

	for _, chunk := range splitIntoChunks(i.Metadata, maxBodyDataPushLen) {
		scriptBuilder.AddData(TagMetadata.Bytes())
		scriptBuilder.AddData(chunk)
	}

	if len(i.Metaprotocol) != 0 {
		scriptBuilder.AddData(TagMetaprotocol.Bytes())
		scriptBuilder.AddData(i.Metaprotocol)
	}

	if len(i.ContentEncoding) != 0 {
		scriptBuilder.AddData(TagContentEncoding.Bytes())
		scriptBuilder.AddData([]byte(i.ContentEncoding))
	}

	if i.Delegate != nil {
		scriptBuilder.AddData(TagDelegate.Bytes())
		scriptBuilder.AddData(i.Delegate.IntoDataPush())
	}

	if len(i.Body) == 0 {
		// inscription protocol end.
		scriptBuilder.AddOp(txscript.OP_ENDIF)

		return scriptBuilder.Script()
	}

	scriptBuilder.AddOp(txscript.OP_0)
	script, err := scriptBuilder.Script()
	if err != nil {
		return nil, err
	}

	// script builder limits script size, so body is built by groups of pushes.
	for _, group := range i.PrepareBody() {
		bodyScriptBuilder := txscript.NewScriptBuilder()
		for _, data := range group {
			if len(data) == 1 {
				// not minimal push, single byte body part must not turn into OP_0 - OP_16.
				bodyScriptBuilder.AddOps([]byte{txscript.OP_DATA_1, data[0]})
				continue
			}

			bodyScriptBuilder.AddData(data)
		}

		bodyPartScript, err := bodyScriptBuilder.Script()
		if err != nil {
			return nil, err
		}

		script = append(script, bodyPartScript...)
	}

	// inscription protocol end.
	return append(script, txscript.OP_ENDIF), nil
}

// PrepareBody returns Inscription body as array of bytes arrays with maxBodyDataPushLen size with separation by maximum script size.
func (i *Inscription) PrepareBody() [][][]byte {
	buffer := splitIntoChunks(i.Body, maxBodyDataPushLen)

	groupsSize := ceilQuotient(len(buffer), maxScriptDataPushes)
	groups := make([][][]byte, groupsSize)
	start, end := 0, maxScriptDataPushes
	for idx := 0; idx < groupsSize; idx++ {
		if end > len(buffer) {
			end = len(buffer)
		}

		groups[idx] = buffer[start:end]
		start = end
		end += maxScriptDataPushes
	}

	return groups
}

// splitIntoChunks returns data split into chunks of provided size, the last one may be shorter.
func splitIntoChunks(data []byte, size int) [][]byte {
	chunks := make([][]byte, 0, ceilQuotient(len(data), size))
	for start := 0; start < len(data); start += size {
		end := start + size
		if end > len(data) {
			end = len(data)
		}

		chunks = append(chunks, data[start:end])
	}

	return chunks
}

// ceilQuotient returns division result with ceil function applied.
func ceilQuotient(divided, divisor int) int {
	ceilQuo := divided / divisor
	if divided%divisor != 0 {
		ceilQuo++
	}

	return ceilQuo
}

// IntoScriptForWitness returns Inscription as a script with pubKey verify at the beginning for witness data.
func (i *Inscription) IntoScriptForWitness(serializedPubKey []byte) ([]byte, error) {
	scriptBuilder := txscript.NewScriptBuilder()
	scriptBuilder.AddData(serializedPubKey)
	scriptBuilder.AddOp(txscript.OP_CHECKSIG)

	script, err := scriptBuilder.Script()
	if err != nil {
		return nil, err
	}

	inscription, err := i.IntoScript()
	if err != nil {
		return nil, err
	}

	return append(script, inscription...), nil
}

// pointerIntoLE returns pointer in little-endian ordering without trailing zeros.
func pointerIntoLE(pointer *big.Int) []byte {
	data := pointer.Bytes()
	slices.Reverse(data)

	return data
}

// pointerFromLE parses little-endian pointer value.
func pointerFromLE(value []byte) *big.Int {
	data := slices.Clone(value)
	slices.Reverse(data)

	return new(big.Int).SetBytes(data)
}
