/*
 * This file is part of the las_merger distribution (https://github.com/ecopia-map/las_merger).
 * Copyright (c) 2019 Massimo Federico Bonfigli - m.federico.bonfigli@gmail.com
 *
 * This program is free software; you can redistribute it and/or modify it
 * under the terms of the GNU Lesser General Public License Version 3 as
 * published by the Free Software Foundation;
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
 * Lesser General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General Public License
 * along with this program. If not, see <http://www.gnu.org/licenses/>.
 *
 * This software also uses third party components. You can find information
 * on their credits and licensing in the file LICENSE-3RD-PARTIES.md that
 * you should have received togheter with the source code.
 */

package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	lasio "github.com/ecopia-map/las_merger/internal/io"
	"github.com/ecopia-map/las_merger/internal/merger"
	"github.com/ecopia-map/las_merger/pkg"
	"github.com/ecopia-map/las_merger/pkg/pipeline_manager"
	"github.com/ecopia-map/las_merger/pkg/pipeline_manager/std_pipeline_manager"
	"github.com/ecopia-map/las_merger/tools"
)

const VERSION = "1.0.0"

const logo = `
  _                                                  
 | | __ _ ___   _ __ ___   ___ _ __ __ _  ___ _ __ 
 | |/ _' / __| | '_ ' _ \ / _ \ '__/ _' |/ _ \ '__|
 | | (_| \__ \ | | | | | |  __/ | | (_| |  __/ |   
 |_|\__,_|___/ |_| |_| |_|\___|_|  \__, |\___|_|   
   Merges LAS, TXT and PLY point clouds |___/        
   Copyright YYYY - Ecopia Map
`

func main() {
	log.SetPrefix("[las_merger] ")
	log.SetFlags(0)
	defer glog.Flush()

	flagsGlobal, args, err := tools.ParseFlagsGlobal(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	if *flagsGlobal.Help {
		showHelp(nil)
		return
	}
	if *flagsGlobal.Version {
		printVersion()
		return
	}

	if len(args) == 0 {
		log.Fatal("Please specify a subcommand [merge|index|info].")
	}
	cmd, args := args[0], args[1:]

	// filter and transform tokens use single dashes and are removed before the flags are parsed
	filterCommand, transformCommand, args, err := pipeline_manager.ExtractCommands(args)
	if err != nil {
		log.Fatal("Error parsing filter or transform: ", err)
	}

	switch cmd {
	case tools.CommandMerge:
		mainCommandMerge(args, filterCommand, transformCommand)
	case tools.CommandIndex:
		if filterCommand != "" || transformCommand != "" {
			log.Fatal("The index command takes no filter or transform.")
		}
		mainCommandIndex(args)
	case tools.CommandInfo:
		mainCommandInfo(args, filterCommand, transformCommand)
	default:
		log.Fatalf("Unrecognized command [%q]. Command must be one of [merge|index|info]", cmd)
	}
}

func mainCommandMerge(args []string, filterCommand string, transformCommand string) {
	flags, flagSet, err := tools.ParseFlagsForCommandMerge(args)
	if err != nil {
		log.Fatal(err)
	}
	if *flags.Help {
		showHelp(flagSet)
		return
	}
	loadConfig(flagSet)
	setupLogger(flags.InputFlags)
	glog.V(1).Infof("flags %s", tools.FmtJSONString(flags))

	opts := newOptions(tools.CommandMerge, flags.InputFlags, filterCommand, transformCommand)
	opts.MergeOptions = &merger.MergeOptions{
		Output:    tools.ResolvePath(*flags.Output),
		BatchSize: *flags.BatchSize,
	}

	if msg, res := applyMergeFlags(opts, &flags); !res {
		log.Fatal("Error parsing input parameters: " + msg)
	}
	if msg, res := validateOptionsForCommandMerge(opts, &flags); !res {
		log.Fatal("Error parsing input parameters: " + msg)
	}

	manager, err := std_pipeline_manager.NewPipelineManager(opts)
	if err != nil {
		log.Fatal("Error parsing input parameters: ", err)
	}
	defer manager.Close()

	defer timeTrack(time.Now(), "merge")
	if err := pkg.NewMerger(tools.NewStandardFileFinder(), manager).Run(opts); err != nil {
		log.Fatal("Error while merging: ", err)
	}
	tools.LogOutput("Merge Completed")
}

// Moves the coordinate frame, flightline and clip flags into the options
func applyMergeFlags(opts *merger.Options, flags *tools.FlagsForCommandMerge) (string, bool) {
	if *flags.Scale != "" {
		scale, err := tools.ParseFloatList(*flags.Scale, 3)
		if err != nil {
			return "scale: " + err.Error(), false
		}
		copy(opts.Scale[:], scale)
	}
	if *flags.Offset != "" {
		offset, err := tools.ParseFloatList(*flags.Offset, 3)
		if err != nil {
			return "offset: " + err.Error(), false
		}
		copy(opts.Offset[:], offset)
		opts.HasOffset = true
	}

	if *flags.Flightlines >= 0 {
		opts.Flightlines = true
		opts.FlightlinesStart = *flags.Flightlines
	}
	opts.ApplyFileSourceID = *flags.ApplyFileSourceID
	opts.KeepTiling = *flags.KeepTiling
	opts.AutoUpgrade = *flags.AutoUpgrade
	opts.UseIndex = !*flags.NoIndex

	clips := 0
	if *flags.InsideTile != "" {
		v, err := tools.ParseFloatList(*flags.InsideTile, 3)
		if err != nil {
			return "inside-tile: " + err.Error(), false
		}
		opts.Clip = lasio.NewTileClip(float32(v[0]), float32(v[1]), float32(v[2]))
		clips++
	}
	if *flags.InsideCircle != "" {
		v, err := tools.ParseFloatList(*flags.InsideCircle, 3)
		if err != nil {
			return "inside-circle: " + err.Error(), false
		}
		opts.Clip = lasio.NewCircleClip(v[0], v[1], v[2])
		clips++
	}
	if *flags.InsideRectangle != "" {
		v, err := tools.ParseFloatList(*flags.InsideRectangle, 4)
		if err != nil {
			return "inside-rectangle: " + err.Error(), false
		}
		opts.Clip = lasio.NewRectangleClip(v[0], v[1], v[2], v[3])
		clips++
	}
	if clips > 1 {
		return "only one of inside-tile, inside-circle and inside-rectangle can be given", false
	}
	return "", true
}

// Validates the input options provided to the command line tool checking
// that the input exists and the merge settings are consistent
func validateOptionsForCommandMerge(opts *merger.Options, flags *tools.FlagsForCommandMerge) (string, bool) {
	if _, err := os.Stat(opts.Input); os.IsNotExist(err) {
		return "Input file/folder not found", false
	}
	if opts.MergeOptions.Output == "" {
		return "output file is required", false
	}
	if info, err := os.Stat(opts.MergeOptions.Output); err == nil && info.IsDir() {
		return "output must be a file, not a folder", false
	}
	if *flags.Flightlines < -1 {
		return "flightlines must be a non negative point source ID", false
	}
	if opts.MergeOptions.BatchSize <= 0 {
		return "batch-size must be greater than zero", false
	}
	for _, s := range opts.Scale {
		if s < 0 {
			return "scale factors cannot be negative", false
		}
	}
	switch opts.GetClipKind() {
	case merger.ClipKindTile:
		if opts.Clip.Size <= 0 {
			return "inside-tile size must be greater than zero", false
		}
	case merger.ClipKindCircle:
		if opts.Clip.Radius <= 0 {
			return "inside-circle radius must be greater than zero", false
		}
	case merger.ClipKindRectangle:
		if opts.Clip.MinX > opts.Clip.MaxX || opts.Clip.MinY > opts.Clip.MaxY {
			return "inside-rectangle must be given as minx,miny,maxx,maxy", false
		}
	}
	return "", true
}

func mainCommandIndex(args []string) {
	flags, flagSet, err := tools.ParseFlagsForCommandIndex(args)
	if err != nil {
		log.Fatal(err)
	}
	if *flags.Help {
		showHelp(flagSet)
		return
	}
	loadConfig(flagSet)
	setupLogger(flags.InputFlags)

	opts := newOptions(tools.CommandIndex, flags.InputFlags, "", "")
	opts.IndexOptions = &merger.IndexOptions{
		CellSize: *flags.CellSize,
		Force:    *flags.Force,
	}

	if msg, res := validateOptionsForCommandIndex(opts); !res {
		log.Fatal("Error parsing input parameters: " + msg)
	}

	defer timeTrack(time.Now(), "index")
	if err := pkg.NewIndexer(tools.NewStandardFileFinder()).Run(opts); err != nil {
		log.Fatal("Error while indexing: ", err)
	}
	tools.LogOutput("Indexing Completed")
}

func validateOptionsForCommandIndex(opts *merger.Options) (string, bool) {
	if _, err := os.Stat(opts.Input); os.IsNotExist(err) {
		return "Input file/folder not found", false
	}
	if opts.IndexOptions.CellSize <= 0 {
		return "cell-size must be greater than zero", false
	}
	return "", true
}

func mainCommandInfo(args []string, filterCommand string, transformCommand string) {
	flags, flagSet, err := tools.ParseFlagsForCommandInfo(args)
	if err != nil {
		log.Fatal(err)
	}
	if *flags.Help {
		showHelp(flagSet)
		return
	}
	loadConfig(flagSet)
	// the report goes to stdout and is kept free of progress output
	tools.DisableLogger()

	opts := newOptions(tools.CommandInfo, flags.InputFlags, filterCommand, transformCommand)
	opts.InspectOptions = &merger.InspectOptions{JSON: *flags.JSON}
	if _, err := os.Stat(opts.Input); os.IsNotExist(err) {
		log.Fatal("Error parsing input parameters: Input file/folder not found")
	}

	manager, err := std_pipeline_manager.NewPipelineManager(opts)
	if err != nil {
		log.Fatal("Error parsing input parameters: ", err)
	}
	defer manager.Close()

	if err := pkg.NewInspector(tools.NewStandardFileFinder(), manager, os.Stdout).Run(opts); err != nil {
		log.Fatal("Error while reading: ", err)
	}
}

func newOptions(cmd string, flags tools.InputFlags, filterCommand string, transformCommand string) *merger.Options {
	opts := merger.NewOptions()
	opts.Command = cmd
	opts.Input = tools.ResolvePath(*flags.Input)
	opts.Recursive = *flags.Recursive
	opts.Reader.ParseString = *flags.ParseString
	opts.Reader.SkipLines = *flags.SkipLines
	opts.FilterCommand = filterCommand
	opts.TransformCommand = transformCommand
	return opts
}

// Fills the flags missing from the command line from the environment and the config file
func loadConfig(flagSet *pflag.FlagSet) {
	if err := tools.SetAllConfig(viper.New(), flagSet, tools.EnvPrefix); err != nil {
		log.Fatal("Error loading configuration: ", err)
	}
}

func setupLogger(flags tools.InputFlags) {
	if *flags.Silent {
		tools.DisableLogger()
	} else {
		printLogo()
	}
	if !*flags.LogTimestamp {
		tools.DisableLoggerTimestamp()
	}
}

func timeTrack(start time.Time, name string) {
	elapsed := time.Since(start)
	tools.LogOutput(fmt.Sprintf("%s took %s", name, elapsed))
}

func printLogo() {
	fmt.Println(strings.ReplaceAll(logo, "YYYY", strconv.Itoa(time.Now().Year())))
}

func showHelp(flagSet *pflag.FlagSet) {
	printLogo()
	fmt.Println("***")
	fmt.Println("las_merger reads LAS, TXT and PLY point clouds as one merged stream, filters and transforms")
	fmt.Println("its points and writes them into a single LAS file")
	printVersion()
	fmt.Println("***")
	fmt.Println("")
	fmt.Println("Usage: las_merger [--version] [-v level] <merge|index|info> [flags] [filter and transform options]")
	fmt.Println("")
	if flagSet == nil {
		fmt.Println("Use las_merger <command> --help to list the flags of a command.")
		return
	}
	fmt.Println("Command line flags: ")
	flagSet.SetOutput(os.Stdout)
	flagSet.PrintDefaults()
}

func printVersion() {
	fmt.Println("v." + VERSION)
}
