/*
Copyright (c) 2018-2019 The c4exnet developers
Copyright (c) 2013-2018 The btcsuite developers
Copyright (c) 2015-2016 The Decred developers
Copyright (c) 2013-2014 Conformal Systems LLC.
Use of this source code is governed by an ISC
license that can be found in the LICENSE file.

subtaild hosts the Graphene mempool-sync protocol and the subblock DAG
proof-of-work core as a standalone daemon, driving both against a
reference in-memory mempool and chain-state so the sync FSMs and DAG
scoring have something concrete to run against.

The default options are sane for most users. This means subtaild will work
'out of the box' for most users. However, there are also a wide variety of
flags that can be used to control it.

Usage:

	subtaild [OPTIONS]

For an up-to-date help message:

	subtaild --help

The long form of all option flags (except -C) can be specified in a
configuration file that is automatically parsed when subtaild starts up. By
default, the configuration file is located at ~/.subtail/subtail.conf. The
-C (--configfile) flag can be used to override this location.
*/
package main
