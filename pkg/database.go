package hcalreco

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	sqlx "github.com/jmoiron/sqlx"
	"golang.org/x/exp/maps"
)

func ConnectToDatabase(user string, pass string, host string, dbname string) (*sqlx.DB, error) {
	port := "3306"
	dbURI := fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)
	db, err := sqlx.Connect("mysql", dbURI)
	return db, err
}

// ConditionsMap is the in-memory conditions set for one run. It implements
// ConditionsService; lookups never mutate it.
type ConditionsMap struct {
	calibrations   map[ChannelID]Calibrations
	coders         map[ChannelID]*QIECoder
	shapes         map[int]*QIEShape
	sipmParams     map[ChannelID]SiPMParameter
	nonlinearities map[int]SiPMNonlinearity
	huffman        *HuffmanNode
}

func NewConditionsMap() *ConditionsMap {
	return &ConditionsMap{
		calibrations:   make(map[ChannelID]Calibrations),
		coders:         make(map[ChannelID]*QIECoder),
		shapes:         make(map[int]*QIEShape),
		sipmParams:     make(map[ChannelID]SiPMParameter),
		nonlinearities: make(map[int]SiPMNonlinearity),
	}
}

func (c *ConditionsMap) SetCalibrations(id ChannelID, calib Calibrations) {
	c.calibrations[id] = calib
}

func (c *ConditionsMap) SetCoder(id ChannelID, coder *QIECoder) {
	c.coders[id] = coder
}

func (c *ConditionsMap) SetShape(shapeID int, shape *QIEShape) {
	c.shapes[shapeID] = shape
}

func (c *ConditionsMap) SetSiPMParameter(id ChannelID, param SiPMParameter) {
	c.sipmParams[id] = param
}

func (c *ConditionsMap) SetSiPMNonlinearity(sipmType int, nonlin SiPMNonlinearity) {
	c.nonlinearities[sipmType] = nonlin
}

func (c *ConditionsMap) SetHuffman(huffman *HuffmanNode) {
	c.huffman = huffman
}

func (c *ConditionsMap) Huffman() *HuffmanNode {
	return c.huffman
}

// Channels lists every channel with calibration entries, in no particular
// order.
func (c *ConditionsMap) Channels() []ChannelID {
	return maps.Keys(c.calibrations)
}

func (c *ConditionsMap) Calibrations(id ChannelID) (Calibrations, error) {
	calib, ok := c.calibrations[id]
	if !ok {
		return Calibrations{}, &ErrBadCalibration{Channel: id, Quantity: "pedestal/gain"}
	}
	return calib, nil
}

func (c *ConditionsMap) Coder(id ChannelID) (*QIECoder, *QIEShape, error) {
	coder, ok := c.coders[id]
	if !ok {
		return nil, nil, &ErrBadCalibration{Channel: id, Quantity: "coder"}
	}
	shape, ok := c.shapes[coder.ShapeID]
	if !ok {
		return nil, nil, &ErrBadCalibration{Channel: id, Quantity: "shape", Value: float64(coder.ShapeID)}
	}
	return coder, shape, nil
}

func (c *ConditionsMap) SiPMParameter(id ChannelID) (SiPMParameter, error) {
	param, ok := c.sipmParams[id]
	if !ok {
		return SiPMParameter{}, &ErrBadCalibration{Channel: id, Quantity: "SiPM parameter"}
	}
	return param, nil
}

func (c *ConditionsMap) SiPMNonlinearity(sipmType int) (SiPMNonlinearity, error) {
	nonlin, ok := c.nonlinearities[sipmType]
	if !ok {
		return SiPMNonlinearity{}, &ErrBadCalibration{Quantity: "SiPM nonlinearity", Value: float64(sipmType)}
	}
	return nonlin, nil
}

type pedestalEntry struct {
	Subdet int     `db:"Subdet"`
	IEta   int     `db:"IEta"`
	IPhi   int     `db:"IPhi"`
	Depth  int     `db:"Depth"`
	CapID  int     `db:"CapID"`
	Value  float64 `db:"Value"`
}

type gainEntry struct {
	Subdet int     `db:"Subdet"`
	IEta   int     `db:"IEta"`
	IPhi   int     `db:"IPhi"`
	Depth  int     `db:"Depth"`
	Value  float64 `db:"Value"`
}

type coderEntry struct {
	Subdet  int     `db:"Subdet"`
	IEta    int     `db:"IEta"`
	IPhi    int     `db:"IPhi"`
	Depth   int     `db:"Depth"`
	CapID   int     `db:"CapID"`
	RangeID int     `db:"RangeID"`
	ShapeID int     `db:"ShapeID"`
	Offset  float64 `db:"Offset"`
	Slope   float64 `db:"Slope"`
}

type shapeEntry struct {
	ShapeID   int     `db:"ShapeID"`
	ADC       int     `db:"ADC"`
	BinCenter float64 `db:"BinCenter"`
}

type sipmParamEntry struct {
	Subdet int     `db:"Subdet"`
	IEta   int     `db:"IEta"`
	IPhi   int     `db:"IPhi"`
	Depth  int     `db:"Depth"`
	Type   int     `db:"Type"`
	FCByPE float64 `db:"FCByPE"`
}

type nonlinearityEntry struct {
	Type int     `db:"Type"`
	C0   float64 `db:"C0"`
	C1   float64 `db:"C1"`
	C2   float64 `db:"C2"`
}

type huffmanEntry struct {
	Value int    `db:"Value"`
	Code  string `db:"Code"`
}

func (e pedestalEntry) channel() ChannelID {
	return ChannelID{Subdet: Subdetector(e.Subdet), IEta: e.IEta, IPhi: e.IPhi, Depth: e.Depth}
}

// LoadConditions reads the full conditions set for one run from the
// database. Any missing or inconsistent quantity is a fatal configuration
// error for the run; there is no per-event fallback.
func LoadConditions(db *sqlx.DB, runNumber int) (*ConditionsMap, error) {
	cond := NewConditionsMap()

	if err := loadPedestalsAndGains(db, runNumber, cond); err != nil {
		logger.Error(err.Error())
		return nil, err
	}
	if err := loadCoders(db, runNumber, cond); err != nil {
		logger.Error(err.Error())
		return nil, err
	}
	if err := loadSiPMData(db, runNumber, cond); err != nil {
		logger.Error(err.Error())
		return nil, err
	}
	if err := loadHuffmanCodes(db, runNumber, cond); err != nil {
		logger.Error(err.Error())
		return nil, err
	}

	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Conditions loaded for run %d: %d channels", runNumber, len(cond.Channels()))
		logger.Info(message, "database")
	}
	return cond, nil
}

func runQuery(db *sqlx.DB, query string, runNumber int) (*sqlx.Rows, error) {
	query = fmt.Sprintf(query, runNumber, runNumber)
	if configuration.Verbosity > 2 {
		message := fmt.Sprintf("Query: %s", query)
		logger.Info(message, "database")
	}
	rows, err := db.Queryx(query)
	if err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	return rows, nil
}

func loadPedestalsAndGains(db *sqlx.DB, runNumber int, cond *ConditionsMap) error {
	query := "SELECT Subdet, IEta, IPhi, Depth, CapID, Value FROM Pedestals WHERE MinRun <= %d AND MaxRun >= %d"
	rows, err := runQuery(db, query, runNumber)
	if err != nil {
		return err
	}
	for rows.Next() {
		result := pedestalEntry{}
		if err := rows.StructScan(&result); err != nil {
			return fmt.Errorf("error scanning DB row: %w", err)
		}
		id := result.channel()
		calib := cond.calibrations[id]
		calib.Pedestals[result.CapID%NumCapIDs] = result.Value
		cond.calibrations[id] = calib
	}

	query = "SELECT Subdet, IEta, IPhi, Depth, Value FROM Gains WHERE MinRun <= %d AND MaxRun >= %d"
	rows, err = runQuery(db, query, runNumber)
	if err != nil {
		return err
	}
	for rows.Next() {
		result := gainEntry{}
		if err := rows.StructScan(&result); err != nil {
			return fmt.Errorf("error scanning DB row: %w", err)
		}
		id := ChannelID{Subdet: Subdetector(result.Subdet), IEta: result.IEta, IPhi: result.IPhi, Depth: result.Depth}
		calib := cond.calibrations[id]
		calib.Gain = result.Value
		cond.calibrations[id] = calib
	}
	return nil
}

func loadCoders(db *sqlx.DB, runNumber int, cond *ConditionsMap) error {
	query := "SELECT Subdet, IEta, IPhi, Depth, CapID, RangeID, ShapeID, Offset, Slope FROM QIECoders WHERE MinRun <= %d AND MaxRun >= %d"
	rows, err := runQuery(db, query, runNumber)
	if err != nil {
		return err
	}
	for rows.Next() {
		result := coderEntry{}
		if err := rows.StructScan(&result); err != nil {
			return fmt.Errorf("error scanning DB row: %w", err)
		}
		id := ChannelID{Subdet: Subdetector(result.Subdet), IEta: result.IEta, IPhi: result.IPhi, Depth: result.Depth}
		coder, ok := cond.coders[id]
		if !ok {
			coder = &QIECoder{ShapeID: result.ShapeID}
			cond.coders[id] = coder
		}
		coder.Offsets[result.CapID%NumCapIDs][result.RangeID%NumQIERanges] = result.Offset
		coder.Slopes[result.CapID%NumCapIDs][result.RangeID%NumQIERanges] = result.Slope
	}

	query = "SELECT ShapeID, ADC, BinCenter FROM QIEShapes WHERE MinRun <= %d AND MaxRun >= %d ORDER BY ShapeID, ADC"
	rows, err = runQuery(db, query, runNumber)
	if err != nil {
		return err
	}
	for rows.Next() {
		result := shapeEntry{}
		if err := rows.StructScan(&result); err != nil {
			return fmt.Errorf("error scanning DB row: %w", err)
		}
		shape, ok := cond.shapes[result.ShapeID]
		if !ok {
			shape = &QIEShape{}
			cond.shapes[result.ShapeID] = shape
		}
		shape.BinCenters = append(shape.BinCenters, result.BinCenter)
	}
	return nil
}

func loadSiPMData(db *sqlx.DB, runNumber int, cond *ConditionsMap) error {
	query := "SELECT Subdet, IEta, IPhi, Depth, Type, FCByPE FROM SiPMParameters WHERE MinRun <= %d AND MaxRun >= %d"
	rows, err := runQuery(db, query, runNumber)
	if err != nil {
		return err
	}
	for rows.Next() {
		result := sipmParamEntry{}
		if err := rows.StructScan(&result); err != nil {
			return fmt.Errorf("error scanning DB row: %w", err)
		}
		id := ChannelID{Subdet: Subdetector(result.Subdet), IEta: result.IEta, IPhi: result.IPhi, Depth: result.Depth}
		cond.sipmParams[id] = SiPMParameter{Type: result.Type, FCByPE: result.FCByPE}
	}

	query = "SELECT Type, C0, C1, C2 FROM SiPMCharacteristics WHERE MinRun <= %d AND MaxRun >= %d"
	rows, err = runQuery(db, query, runNumber)
	if err != nil {
		return err
	}
	for rows.Next() {
		result := nonlinearityEntry{}
		if err := rows.StructScan(&result); err != nil {
			return fmt.Errorf("error scanning DB row: %w", err)
		}
		// The factor at zero fired pixels must be an identity, otherwise an
		// empty integration window would rescale the pedestal baseline.
		if result.C0 != 1 {
			return &ErrBadCalibration{Quantity: "nonlinearity at zero", Value: result.C0}
		}
		cond.nonlinearities[result.Type] = SiPMNonlinearity{Coefs: [3]float64{result.C0, result.C1, result.C2}}
	}
	return nil
}

func loadHuffmanCodes(db *sqlx.DB, runNumber int, cond *ConditionsMap) error {
	query := "SELECT Value, Code FROM HuffmanCodesAdc WHERE MinRun <= %d AND MaxRun >= %d"
	rows, err := runQuery(db, query, runNumber)
	if err != nil {
		return err
	}

	huffman := NewHuffmanTree()
	found := false
	for rows.Next() {
		result := huffmanEntry{}
		if err := rows.StructScan(&result); err != nil {
			return fmt.Errorf("error scanning DB row: %w", err)
		}
		huffman.Insert(int32(result.Value), result.Code)
		found = true
	}
	if found {
		cond.huffman = huffman
	}
	return nil
}
