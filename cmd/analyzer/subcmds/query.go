/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package subcmds

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/np-guard/models/pkg/netp"

	"github.com/np-guard/reachability-analyzer/pkg/network"
	"github.com/np-guard/reachability-analyzer/pkg/reachability"
)

const (
	srcFlag              = "src"
	srcIPsFlag           = "src-ips"
	dstFlag              = "dst"
	protocolFlag         = "protocol"
	srcMinPortFlag       = "src-min-port"
	srcMaxPortFlag       = "src-max-port"
	dstMinPortFlag       = "dst-min-port"
	dstMaxPortFlag       = "dst-max-port"
	dispositionFlag      = "disposition"
	forbiddenTransitFlag = "forbidden-transit"
	requiredTransitFlag  = "required-transit"
	finalNodeFlag        = "final-node"
	ignoreFiltersFlag    = "ignore-filters"

	srcUsage = "ingress location; can be specified as node[iface] for traffic entering an interface,\n" +
		"node[iface=name] for traffic originated from an interface address or node[vrf=name] for traffic originated in a vrf"
)

// queryArgs holds the values of the query flags
type queryArgs struct {
	sources          []string
	srcIPs           []string
	dstIPs           []string
	protocol         protocolSetting
	srcMinPort       int64
	srcMaxPort       int64
	dstMinPort       int64
	dstMaxPort       int64
	dispositions     dispositionsSetting
	forbiddenTransit []string
	requiredTransit  []string
	finalNodes       []string
	ignoreFilters    bool
}

var errPortsWithoutProtocol = errors.New("protocol tcp or udp must be specified when specifying ports")

// queryDoc is one query of a query settings file
type queryDoc struct {
	Name             string   `toml:"name"`
	Kind             string   `toml:"kind"`
	Sources          []string `toml:"sources"`
	SrcIPs           []string `toml:"src-ips"`
	DstIPs           []string `toml:"dst-ips"`
	Protocols        []string `toml:"protocols"`
	SrcPorts         []string `toml:"src-ports"`
	DstPorts         []string `toml:"dst-ports"`
	Dispositions     []string `toml:"dispositions"`
	ForbiddenTransit []string `toml:"forbidden-transit"`
	RequiredTransit  []string `toml:"required-transit"`
	FinalNodes       []string `toml:"final-nodes"`
	IgnoreFilters    bool     `toml:"ignore-filters"`
}

type queryFile struct {
	Queries []queryDoc `toml:"query"`
}

var jobKinds = map[string]reachability.JobKind{
	reachability.ReachabilityJob.String():  reachability.ReachabilityJob,
	reachability.MultipathJob.String():     reachability.MultipathJob,
	reachability.BidirectionalJob.String(): reachability.BidirectionalJob,
}

func addQueryFlags(cmd *cobra.Command, args *queryArgs) {
	cmd.Flags().StringArrayVar(&args.sources, srcFlag, nil, srcUsage+"; can pass multiple locations")
	cmd.Flags().StringSliceVar(&args.srcIPs, srcIPsFlag, nil, "source addresses or CIDRs the flows may have")
	cmd.Flags().StringSliceVar(&args.dstIPs, dstFlag, nil, "destination addresses or CIDRs")
	cmd.Flags().Var(&args.protocol, protocolFlag, "protocol of the flows")
	cmd.Flags().Int64Var(&args.srcMinPort, srcMinPortFlag, netp.MinPort, "minimum source port")
	cmd.Flags().Int64Var(&args.srcMaxPort, srcMaxPortFlag, netp.MaxPort, "maximum source port")
	cmd.Flags().Int64Var(&args.dstMinPort, dstMinPortFlag, netp.MinPort, "minimum destination port")
	cmd.Flags().Int64Var(&args.dstMaxPort, dstMaxPortFlag, netp.MaxPort, "maximum destination port")
	cmd.Flags().Var(&args.dispositions, dispositionFlag, "dispositions of interest; "+mustBeOneOf(allDispositionNames()))
	cmd.Flags().StringSliceVar(&args.forbiddenTransit, forbiddenTransitFlag, nil, "devices that must not forward the flows")
	cmd.Flags().StringSliceVar(&args.requiredTransit, requiredTransitFlag, nil, "devices one of which must forward the flows")
	cmd.Flags().StringSliceVar(&args.finalNodes, finalNodeFlag, nil, "devices whose dispositions count")
	cmd.Flags().BoolVar(&args.ignoreFilters, ignoreFiltersFlag, false, "treat every filter as permitting everything")
	cmd.Flags().SortFlags = false
}

func portInRange(port int64) bool {
	if port > netp.MaxPort || port < netp.MinPort {
		return false
	}

	return true
}

func minMaxValidity(minPort, maxPort int64, minPortName, maxPortName string) error {
	if minPort > maxPort {
		return fmt.Errorf("%s %d must not be larger than %s %d", minPortName, minPort, maxPortName, maxPort)
	}

	return nil
}

func FlagSet(cmd *cobra.Command, flagName string) bool {
	flag := cmd.Flags().Lookup(flagName)
	if flag == nil {
		return false
	}
	return flag.Changed
}

// validateQueryFlags checks the port flags on their own. Whether ports come with a
// protocol having ports is checked on the merged query, see queryDoc.validatePorts.
func validateQueryFlags(cmd *cobra.Command, args *queryArgs) error {
	if FlagSet(cmd, protocolFlag) && args.protocol == protocolSetting(netp.ProtocolStringICMP) {
		if FlagSet(cmd, srcMinPortFlag) || FlagSet(cmd, srcMaxPortFlag) ||
			FlagSet(cmd, dstMinPortFlag) || FlagSet(cmd, dstMaxPortFlag) {
			return errPortsWithoutProtocol
		}
	}

	err := minMaxValidity(args.srcMinPort, args.srcMaxPort, srcMinPortFlag, srcMaxPortFlag)
	if err != nil {
		return err
	}
	err = minMaxValidity(args.dstMinPort, args.dstMaxPort, dstMinPortFlag, dstMaxPortFlag)
	if err != nil {
		return err
	}

	if !portInRange(args.srcMinPort) || !portInRange(args.srcMaxPort) ||
		!portInRange(args.dstMinPort) || !portInRange(args.dstMaxPort) {
		return fmt.Errorf("port number must be in between %d, %d, inclusive",
			netp.MinPort, netp.MaxPort)
	}

	return nil
}

func loadQueryFile(path string) ([]queryDoc, error) {
	var qf queryFile
	md, err := toml.DecodeFile(path, &qf)
	if err != nil {
		return nil, fmt.Errorf("query settings %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("query settings %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if len(qf.Queries) == 0 {
		return nil, fmt.Errorf("query settings %s: no queries", path)
	}
	return qf.Queries, nil
}

func portRange(minPort, maxPort int64) string {
	return network.PortRange{Min: minPort, Max: maxPort}.String()
}

// overrideWithFlags replaces the fields of doc whose flags were set.
func overrideWithFlags(cmd *cobra.Command, args *queryArgs, doc *queryDoc) {
	if FlagSet(cmd, srcFlag) {
		doc.Sources = args.sources
	}
	if FlagSet(cmd, srcIPsFlag) {
		doc.SrcIPs = args.srcIPs
	}
	if FlagSet(cmd, dstFlag) {
		doc.DstIPs = args.dstIPs
	}
	if FlagSet(cmd, protocolFlag) {
		doc.Protocols = []string{args.protocol.String()}
	}
	if FlagSet(cmd, srcMinPortFlag) || FlagSet(cmd, srcMaxPortFlag) {
		doc.SrcPorts = []string{portRange(args.srcMinPort, args.srcMaxPort)}
	}
	if FlagSet(cmd, dstMinPortFlag) || FlagSet(cmd, dstMaxPortFlag) {
		doc.DstPorts = []string{portRange(args.dstMinPort, args.dstMaxPort)}
	}
	if FlagSet(cmd, dispositionFlag) {
		doc.Dispositions = nil
		for _, d := range args.dispositions {
			doc.Dispositions = append(doc.Dispositions, d.String())
		}
	}
	if FlagSet(cmd, forbiddenTransitFlag) {
		doc.ForbiddenTransit = args.forbiddenTransit
	}
	if FlagSet(cmd, requiredTransitFlag) {
		doc.RequiredTransit = args.requiredTransit
	}
	if FlagSet(cmd, finalNodeFlag) {
		doc.FinalNodes = args.finalNodes
	}
	if FlagSet(cmd, ignoreFiltersFlag) {
		doc.IgnoreFilters = args.ignoreFilters
	}
}

// validatePorts rejects port ranges in a query none of whose protocols has ports.
func (qd *queryDoc) validatePorts() error {
	if len(qd.SrcPorts) == 0 && len(qd.DstPorts) == 0 {
		return nil
	}
	for _, p := range qd.Protocols {
		switch netp.ProtocolString(strings.ToUpper(p)) {
		case netp.ProtocolStringTCP, netp.ProtocolStringUDP:
			return nil
		}
	}
	return errPortsWithoutProtocol
}

func (qd *queryDoc) toQuery() (*reachability.Query, error) {
	if err := qd.validatePorts(); err != nil {
		return nil, err
	}
	hs, err := network.ParseHeaderSpace(nil, qd.DstIPs, qd.Protocols, qd.SrcPorts, qd.DstPorts)
	if err != nil {
		return nil, err
	}
	res := &reachability.Query{
		HeaderSpace:      hs,
		ForbiddenTransit: qd.ForbiddenTransit,
		RequiredTransit:  qd.RequiredTransit,
		FinalNodes:       qd.FinalNodes,
		IgnoreFilters:    qd.IgnoreFilters,
	}
	srcIPs, err := network.ParseIPs(qd.SrcIPs)
	if err != nil {
		return nil, err
	}
	if len(qd.Sources) > 0 || srcIPs != nil {
		sa := reachability.SourceAssignment{SrcIPs: srcIPs}
		for _, s := range qd.Sources {
			loc, err := reachability.ParseIngressLocation(s)
			if err != nil {
				return nil, err
			}
			sa.Locations = append(sa.Locations, loc)
		}
		res.Sources = []reachability.SourceAssignment{sa}
	}
	var ds dispositionsSetting
	for _, d := range qd.Dispositions {
		if err := ds.Set(d); err != nil {
			return nil, err
		}
	}
	res.Dispositions = ds
	return res, nil
}

// toJob builds the job of the i-th query of a settings file. The kind defaults to
// reachability.
func (qd *queryDoc) toJob(i int) (reachability.Job, error) {
	name := qd.Name
	if name == "" {
		name = fmt.Sprintf("query-%d", i+1)
	}
	kind := reachability.ReachabilityJob
	if qd.Kind != "" {
		var ok bool
		if kind, ok = jobKinds[strings.ToLower(qd.Kind)]; !ok {
			return reachability.Job{}, fmt.Errorf("query %s: unknown kind %q", name, qd.Kind)
		}
	}
	q, err := qd.toQuery()
	if err != nil {
		return reachability.Job{}, fmt.Errorf("query %s: %w", name, err)
	}
	return reachability.Job{Name: name, Kind: kind, Query: *q}, nil
}

// buildQuery returns the query given by the flags of cmd, on top of the first query of
// the settings file when there is one.
func buildQuery(cmd *cobra.Command, args *inArgs) (*queryDoc, error) {
	doc := &queryDoc{}
	if args.queryFile != "" {
		docs, err := loadQueryFile(args.queryFile)
		if err != nil {
			return nil, err
		}
		doc = &docs[0]
	}
	overrideWithFlags(cmd, &args.query, doc)
	return doc, nil
}

// buildJobs returns a job per query of the settings file.
func buildJobs(args *inArgs) ([]reachability.Job, error) {
	if args.queryFile == "" {
		return nil, errors.New("the run command needs query settings, given with --" + queryFileFlag)
	}
	docs, err := loadQueryFile(args.queryFile)
	if err != nil {
		return nil, err
	}
	jobs := make([]reachability.Job, len(docs))
	for i := range docs {
		if jobs[i], err = docs[i].toJob(i); err != nil {
			return nil, err
		}
	}
	return jobs, nil
}
