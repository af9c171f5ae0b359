package pkg

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	lasio "github.com/ecopia-map/las_merger/internal/io"
	"github.com/ecopia-map/las_merger/internal/merger"
	"github.com/ecopia-map/las_merger/pkg/pipeline_manager"
	"github.com/ecopia-map/las_merger/tools"
)

const GeneratingSoftware = "las_merger"

type Merger struct {
	fileFinder      tools.FileFinder
	pipelineManager pipeline_manager.PipelineManager
}

func NewMerger(fileFinder tools.FileFinder, pipelineManager pipeline_manager.PipelineManager) IRunner {
	return &Merger{
		fileFinder:      fileFinder,
		pipelineManager: pipelineManager,
	}
}

// Merges every source into one LAS file. The file is written under a temporary name and
// renamed once complete.
func (m *Merger) Run(opts *merger.Options) error {
	tools.LogOutput("Preparing list of files to merge...")
	files, err := m.fileFinder.GetFilesToProcess(opts)
	if err != nil {
		return err
	}
	for i, filePath := range files {
		glog.V(1).Infof("source %d [%s]", i+1, filePath)
	}

	reader, err := openMergedReader(files, opts, m.pipelineManager)
	if err != nil {
		return err
	}
	defer reader.Close()
	tools.LogOutputf("> merging %d points from %d files", reader.GetPointCount(), reader.GetSourceCount())

	output := opts.MergeOptions.Output
	if err := tools.CreateDirectoryIfDoesNotExist(filepath.Dir(output)); err != nil {
		return err
	}
	tmp := fmt.Sprintf("%s.%s.tmp", output, uuid.New().String())

	header := reader.GetHeader().Clone()
	header.GeneratingSoftware = GeneratingSoftware
	writer, err := lasio.CreateLasWriter(tmp, header)
	if err != nil {
		return err
	}

	written, err := m.export(reader, writer, opts.MergeOptions.BatchSize)
	if closeErr := writer.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, output); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "renaming '%s'", tmp)
	}

	if m.pipelineManager != nil {
		m.pipelineManager.Report()
	}
	tools.LogOutputf("> wrote %d points to %s", written, output)
	return nil
}

// Streams the merged points to the writer through the work channel
func (m *Merger) export(reader *merger.Reader, writer *lasio.LasWriter, batchSize int) (uint64, error) {
	workChannel := make(chan *lasio.WorkUnit, 5)

	// producer and consumer send at most one error each
	errorChannel := make(chan error, 2)

	// closed by the consumer when writing fails
	done := make(chan struct{})

	var waitGroup sync.WaitGroup
	waitGroup.Add(2)

	producer := lasio.NewStandardProducer(reader, batchSize)
	go producer.Produce(workChannel, done, errorChannel, &waitGroup)

	consumer := lasio.NewStandardConsumer(writer)
	go consumer.Consume(workChannel, done, errorChannel, &waitGroup)

	waitGroup.Wait()
	close(errorChannel)

	for err := range errorChannel {
		glog.Errorf("merge failed: %v", err)
		return consumer.GetWritten(), err
	}
	return consumer.GetWritten(), nil
}
