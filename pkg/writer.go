package hcalreco

import (
	"fmt"

	hdf5 "github.com/jmbenlloch/go-hdf5"
)

type RunInfoHDF5 struct {
	run_number int32
}

type EventDataHDF5 struct {
	evt_number int32
	timestamp  uint64
	nhits      int32
}

type RecHitHDF5 struct {
	evt_number int32
	subdet     int32
	ieta       int32
	iphi       int32
	depth      int32
	energy     float32
	time       float32
	flags      int32
}

// Writer persists the per-cycle rec hits to HDF5. Hits are appended in
// ledger order, one block per event.
type Writer struct {
	File         *hdf5.File
	Filename     string
	FirstEvt     bool
	RunGroup     *hdf5.Group
	RecHitsGroup *hdf5.Group
	RunInfoTable *hdf5.Dataset
	EventTable   *hdf5.Dataset
	HitsTable    *hdf5.Dataset
}

func NewWriter(filename string) *Writer {
	writer := &Writer{}
	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Creating output file: %s", filename), "writer")
	}
	writer.File = openFile(filename)
	writer.Filename = filename
	writer.RunGroup = createGroup(writer.File, "Run")
	writer.RecHitsGroup = createGroup(writer.File, "RecHits")
	writer.RunInfoTable = createTable(writer.RunGroup, "runInfo", RunInfoHDF5{})
	writer.EventTable = createTable(writer.RunGroup, "events", EventDataHDF5{})
	writer.HitsTable = createTable(writer.RecHitsGroup, "hits", RecHitHDF5{})
	return writer
}

// WriteCycle appends the event entry and its rec hits. The run info row is
// written once, on the first event.
func (w *Writer) WriteCycle(event Event, hits []RecHit) {
	if !w.FirstEvt {
		writeEntryToTable(w.RunInfoTable, RunInfoHDF5{run_number: int32(event.RunNumber)})
		w.FirstEvt = true
	}

	writeEntryToTable(w.EventTable, EventDataHDF5{
		evt_number: int32(event.EventID),
		timestamp:  event.Timestamp,
		nhits:      int32(len(hits)),
	})

	rows := make([]RecHitHDF5, len(hits))
	for i, hit := range hits {
		rows[i] = RecHitHDF5{
			evt_number: int32(event.EventID),
			subdet:     int32(hit.ID.Subdet),
			ieta:       int32(hit.ID.IEta),
			iphi:       int32(hit.ID.IPhi),
			depth:      int32(hit.ID.Depth),
			energy:     hit.Energy,
			time:       hit.Time,
			flags:      int32(hit.Flags),
		}
	}
	writeArrayToTable(w.HitsTable, &rows)
}

func (w *Writer) Close() {
	w.RunInfoTable.Close()
	w.EventTable.Close()
	w.HitsTable.Close()
	w.RunGroup.Close()
	w.RecHitsGroup.Close()
	w.File.Close()
}
